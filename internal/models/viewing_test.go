package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from ViewingStatus
		to   ViewingStatus
		want bool
	}{
		{"pending to accepted", ViewingPending, ViewingAccepted, true},
		{"pending to rejected", ViewingPending, ViewingRejected, true},
		{"pending to rescheduled", ViewingPending, ViewingRescheduled, true},
		{"pending to cancelled", ViewingPending, ViewingCancelled, true},
		{"pending to completed skips decision", ViewingPending, ViewingCompleted, false},
		{"accepted to completed", ViewingAccepted, ViewingCompleted, true},
		{"accepted to rescheduled", ViewingAccepted, ViewingRescheduled, true},
		{"accepted back to pending", ViewingAccepted, ViewingPending, false},
		{"rejected to completed", ViewingRejected, ViewingCompleted, true},
		{"rejected to accepted", ViewingRejected, ViewingAccepted, false},
		{"rescheduled to accepted", ViewingRescheduled, ViewingAccepted, true},
		{"rescheduled to rejected", ViewingRescheduled, ViewingRejected, true},
		{"completed is terminal", ViewingCompleted, ViewingCancelled, false},
		{"cancelled is terminal", ViewingCancelled, ViewingAccepted, false},
		{"cancelled cannot complete", ViewingCancelled, ViewingCompleted, false},
		{"self transition", ViewingPending, ViewingPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestViewingStatus_IsTerminal(t *testing.T) {
	assert.True(t, ViewingCompleted.IsTerminal())
	assert.True(t, ViewingCancelled.IsTerminal())
	assert.False(t, ViewingPending.IsTerminal())
	assert.False(t, ViewingAccepted.IsTerminal())
	assert.False(t, ViewingRejected.IsTerminal())
	assert.False(t, ViewingRescheduled.IsTerminal())
}

func TestCanTransition_TerminalStatesEmitNothing(t *testing.T) {
	all := []ViewingStatus{
		ViewingPending, ViewingAccepted, ViewingRejected,
		ViewingRescheduled, ViewingCompleted, ViewingCancelled,
	}
	for _, from := range []ViewingStatus{ViewingCompleted, ViewingCancelled} {
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "%s must not transition to %s", from, to)
		}
	}
}
