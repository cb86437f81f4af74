package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintLogStatus_CanTransition(t *testing.T) {
	cases := []struct {
		from, to PrintLogStatus
		legal    bool
	}{
		{PrintLogPending, PrintLogProcessing, true},
		{PrintLogPending, PrintLogCancelled, true},
		{PrintLogPending, PrintLogSucceeded, false},
		{PrintLogPending, PrintLogErrored, false},

		{PrintLogProcessing, PrintLogSucceeded, true},
		{PrintLogProcessing, PrintLogErrored, true},
		{PrintLogProcessing, PrintLogCancelled, false},
		{PrintLogProcessing, PrintLogPending, false},

		{PrintLogErrored, PrintLogProcessing, true},
		{PrintLogErrored, PrintLogSucceeded, false},
		{PrintLogErrored, PrintLogCancelled, false},

		{PrintLogSucceeded, PrintLogProcessing, false},
		{PrintLogSucceeded, PrintLogErrored, false},
		{PrintLogCancelled, PrintLogProcessing, false},
	}

	for _, tc := range cases {
		assert.Equalf(t, tc.legal, tc.from.CanTransition(tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestPrintLogStatus_Retryable(t *testing.T) {
	assert.True(t, PrintLogPending.Retryable())
	assert.True(t, PrintLogErrored.Retryable())
	assert.False(t, PrintLogProcessing.Retryable())
	assert.False(t, PrintLogSucceeded.Retryable())
	assert.False(t, PrintLogCancelled.Retryable())
}

func TestPrintState_BadgePriority(t *testing.T) {
	all := PrintState{HasPrintErrors: true, HasUnsentItems: true, HasPendingPrints: true}
	assert.Equal(t, PrintBadgeError, all.Badge())

	unsent := PrintState{HasUnsentItems: true, HasPendingPrints: true}
	assert.Equal(t, PrintBadgeUnsent, unsent.Badge())

	printing := PrintState{HasPendingPrints: true}
	assert.Equal(t, PrintBadgePrinting, printing.Badge())

	assert.Equal(t, PrintBadgeNone, PrintState{}.Badge())
}

func TestDerivePrintState(t *testing.T) {
	state := DerivePrintState([]PrintLogStatus{
		PrintLogSucceeded,
		PrintLogErrored,
		PrintLogPending,
	})
	assert.True(t, state.HasPrintErrors)
	assert.True(t, state.HasUnsentItems)
	assert.False(t, state.HasPendingPrints)

	clean := DerivePrintState([]PrintLogStatus{PrintLogSucceeded, PrintLogCancelled})
	assert.Equal(t, PrintBadgeNone, clean.Badge())
}
