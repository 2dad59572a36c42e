package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateApply(t *testing.T) {
	base := State{
		Entries: []Entry{UserEntry("hi")},
		Fields:  map[string]any{"requirements": "old", "keep": 1},
	}

	next := base.Apply(Delta{
		Entries:  []Entry{AgentEntry("hello")},
		Fields:   map[string]any{"requirements": "new"},
		Internal: map[string]any{"requirements_complete": true},
	})

	assert.Len(t, base.Entries, 1, "apply must not mutate the receiver")
	assert.Equal(t, "old", base.Fields["requirements"])
	assert.Nil(t, base.Internal)

	require.Len(t, next.Entries, 2)
	assert.Equal(t, RoleAgent, next.Entries[1].Role)
	assert.Equal(t, "new", next.Fields["requirements"])
	assert.Equal(t, 1, next.Fields["keep"])
	assert.True(t, next.Flag("requirements_complete"))
}

func TestStateCloneIsolation(t *testing.T) {
	s := State{Entries: make([]Entry, 1, 4), Fields: map[string]any{"a": 1}}
	c := s.Clone()
	c.Entries = append(c.Entries, UserEntry("x"))
	c.Fields["a"] = 2

	assert.Len(t, s.Entries, 1)
	assert.Equal(t, 1, s.Fields["a"])
	// appending to the original must not show up in the clone either
	s.Entries = append(s.Entries, AgentEntry("y"))
	assert.Equal(t, "x", c.Entries[1].Text)
}

func TestFieldAs(t *testing.T) {
	type trip struct {
		Origin string `json:"origin"`
		Days   int    `json:"days"`
	}
	s := State{Fields: map[string]any{
		"typed":   trip{Origin: "NRT", Days: 3},
		"generic": map[string]any{"origin": "ICN", "days": float64(5)},
		"empty":   nil,
	}}

	var got trip
	ok, err := s.FieldAs("typed", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, trip{Origin: "NRT", Days: 3}, got)

	ok, err = s.FieldAs("generic", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, trip{Origin: "ICN", Days: 5}, got)

	ok, err = s.FieldAs("empty", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = s.FieldAs("missing", &got)
	assert.False(t, ok)
}

func TestLastEntry(t *testing.T) {
	s := NewState()
	_, ok := s.LastEntry()
	assert.False(t, ok)

	s = NewState(UserEntry("a"), AgentEntry("", ToolCall{ID: "1", Name: "search"}), ToolResultEntry(ToolResult{CallID: "1"}))
	last, ok := s.LastEntry()
	require.True(t, ok)
	assert.Equal(t, RoleToolResult, last.Role)

	agent, ok := s.LastEntryOf(RoleAgent)
	require.True(t, ok)
	assert.True(t, agent.HasPendingCalls())
}

func TestIsEmptyValue(t *testing.T) {
	var nilMap map[string]any
	var nilPtr *int
	assert.True(t, IsEmptyValue(nil))
	assert.True(t, IsEmptyValue(""))
	assert.True(t, IsEmptyValue(nilMap))
	assert.True(t, IsEmptyValue([]string{}))
	assert.True(t, IsEmptyValue(nilPtr))
	assert.False(t, IsEmptyValue("x"))
	assert.False(t, IsEmptyValue(map[string]any{"a": 1}))
	assert.False(t, IsEmptyValue(0))
	assert.False(t, IsEmptyValue(struct{ A int }{}))
}

func TestSuspensionText(t *testing.T) {
	assert.Equal(t, "", (*Suspension)(nil).Text())
	assert.Equal(t, "When?", (&Suspension{Payload: "When?"}).Text())
	assert.Equal(t, "Dates?", (&Suspension{Payload: map[string]any{"question": "Dates?"}}).Text())
	assert.Equal(t, `[1,2]`, (&Suspension{Payload: []int{1, 2}}).Text())
}
