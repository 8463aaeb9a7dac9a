package model

import "strings"

type ChannelType string

const CHANNEL_EVOLUTION ChannelType = "evolution"
const CHANNEL_CHATWOOT ChannelType = "chatwoot"
const CHANNEL_DIALOGY ChannelType = "dialogy"

// Node is one step of a user-authored flow graph. Config carries the
// type-specific fields exactly as the editor stored them; the node package
// owns their interpretation.
type Node struct {
	Id     string         `json:"id"`
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// Connection is a labeled directed edge. SourceHandle is the branch selector
// chosen by the node that owns it; TargetHandle marks semantic input ports
// such as "memory" or "tools".
type Connection struct {
	From         string `json:"from"`
	To           string `json:"to"`
	SourceHandle string `json:"sourceHandle"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// TriggerMapping copies a value from the inbound payload into a flow
// variable when a trigger starts a session.
type TriggerMapping struct {
	Variable string `json:"variable"`
	Path     string `json:"path"`
}

// Trigger is a webhook entry point declared on the workspace. Keyword
// matching is case-insensitive exact.
type Trigger struct {
	NodeId   string           `json:"nodeId"`
	Keyword  string           `json:"keyword,omitempty"`
	Default  bool             `json:"default,omitempty"`
	Enabled  bool             `json:"enabled"`
	Mappings []TriggerMapping `json:"mappings,omitempty"`
}

// Workspace is the immutable-per-run graph definition. Loaded read-only for
// each execution; only the external editor mutates it.
type Workspace struct {
	Id                  string       `json:"id"`
	OrgId               string       `json:"orgId"`
	Name                string       `json:"name"`
	Enabled             bool         `json:"enabled"`
	Nodes               []Node       `json:"nodes"`
	Connections         []Connection `json:"connections"`
	Triggers            []Trigger    `json:"triggers"`
	EvolutionInstanceId string       `json:"evolutionInstanceId,omitempty"`
	ChatwootInstanceId  string       `json:"chatwootInstanceId,omitempty"`
	DialogyInstanceId   string       `json:"dialogyInstanceId,omitempty"`
}

func (w *Workspace) NodeById(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].Id == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// ConnectionFrom returns the edge leaving nodeId whose source handle matches
// the given branch label.
func (w *Workspace) ConnectionFrom(nodeId string, handle string) *Connection {
	for i := range w.Connections {
		c := &w.Connections[i]
		if c.From == nodeId && c.SourceHandle == handle {
			return c
		}
	}
	return nil
}

// ConnectionsInto returns edges arriving at nodeId on the given target
// handle, used to discover wired memory and tool ports.
func (w *Workspace) ConnectionsInto(nodeId string, targetHandle string) []Connection {
	var out []Connection
	for _, c := range w.Connections {
		if c.To == nodeId && c.TargetHandle == targetHandle {
			out = append(out, c)
		}
	}
	return out
}

// MatchTrigger returns the first enabled trigger whose keyword matches the
// inbound text, scanning in declaration order.
func (w *Workspace) MatchTrigger(text string) *Trigger {
	for i := range w.Triggers {
		t := &w.Triggers[i]
		if t.Enabled && t.Keyword != "" && strings.EqualFold(t.Keyword, strings.TrimSpace(text)) {
			return t
		}
	}
	return nil
}

// DefaultTrigger returns the workspace's fallback entry point.
func (w *Workspace) DefaultTrigger() *Trigger {
	for i := range w.Triggers {
		if w.Triggers[i].Enabled && w.Triggers[i].Default {
			return &w.Triggers[i]
		}
	}
	return nil
}
