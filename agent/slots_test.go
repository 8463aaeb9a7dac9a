package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeSlots(t *testing.T) {
	var s ConversationState

	s.MergeSlots("my cpf is 123.456.789-00")
	require.Equal(t, "123.456.789-00", s.Slots["cpf"])

	s.MergeSlots("I am on plan fibra")
	require.Equal(t, "fibra", s.Slots["plan"])

	// a newly seen value overwrites the old one
	s.MergeSlots("actually my cpf is 987.654.321-00")
	require.Equal(t, "987.654.321-00", s.Slots["cpf"])
	require.Equal(t, "fibra", s.Slots["plan"])
}
