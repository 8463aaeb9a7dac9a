package agent

import "strings"

const maxBubbleLength = 320
const maxBubbles = 4

// SplitBubbles splits a sanitized reply into at most maxBubbles message
// bubbles. Splitting is paragraph-first, then line-level, then
// sentence-level; each bubble is capped in length and overflow is merged
// into the tail bubble so no content is lost.
func SplitBubbles(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var bubbles []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		bubbles = append(bubbles, splitPiece(para)...)
	}
	if len(bubbles) > maxBubbles {
		tail := strings.Join(bubbles[maxBubbles-1:], "\n")
		bubbles = append(bubbles[:maxBubbles-1], tail)
	}
	return bubbles
}

func splitPiece(piece string) []string {
	if len([]rune(piece)) <= maxBubbleLength {
		return []string{piece}
	}
	if strings.Contains(piece, "\n") {
		var out []string
		for _, line := range strings.Split(piece, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			out = append(out, splitPiece(line)...)
		}
		return out
	}
	return splitSentences(piece)
}

// splitSentences packs sentences into bubbles up to the length cap. A
// single sentence longer than the cap becomes its own oversized bubble
// rather than being cut mid-word.
func splitSentences(piece string) []string {
	var sentences []string
	start := 0
	runes := []rune(piece)
	for i, r := range runes {
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || runes[i+1] == ' ' {
				sentences = append(sentences, strings.TrimSpace(string(runes[start:i+1])))
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
			sentences = append(sentences, rest)
		}
	}
	var out []string
	current := ""
	for _, s := range sentences {
		if current == "" {
			current = s
			continue
		}
		if len([]rune(current))+1+len([]rune(s)) <= maxBubbleLength {
			current = current + " " + s
		} else {
			out = append(out, current)
			current = s
		}
	}
	if current != "" {
		out = append(out, current)
	}
	return out
}
