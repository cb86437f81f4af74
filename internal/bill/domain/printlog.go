package domain

// PrintLogStatus is the delivery state of one print log. Transitions are
// monotonically forward; terminal states are only reachable from
// processing, except cancelled which is only reachable from pending.
type PrintLogStatus string

const (
	PrintLogPending    PrintLogStatus = "pending"
	PrintLogProcessing PrintLogStatus = "processing"
	PrintLogSucceeded  PrintLogStatus = "succeeded"
	PrintLogErrored    PrintLogStatus = "errored"
	PrintLogCancelled  PrintLogStatus = "cancelled"
)

// Retryable reports whether the next dispatch cycle picks this log up.
func (s PrintLogStatus) Retryable() bool {
	return s == PrintLogPending || s == PrintLogErrored
}

// CanTransition reports whether moving to next is a legal forward step.
func (s PrintLogStatus) CanTransition(next PrintLogStatus) bool {
	switch s {
	case PrintLogPending:
		return next == PrintLogProcessing || next == PrintLogCancelled
	case PrintLogErrored:
		return next == PrintLogProcessing
	case PrintLogProcessing:
		return next == PrintLogSucceeded || next == PrintLogErrored
	default:
		return false
	}
}

// PrintBadge is the single user-visible print status per bill.
type PrintBadge string

const (
	PrintBadgeNone     PrintBadge = "none"
	PrintBadgeError    PrintBadge = "error"
	PrintBadgeUnsent   PrintBadge = "unsent"
	PrintBadgePrinting PrintBadge = "printing"
)

// PrintState is derived from a bill's full print-log set.
type PrintState struct {
	HasPrintErrors   bool `json:"has_print_errors"`
	HasUnsentItems   bool `json:"has_unsent_items"`
	HasPendingPrints bool `json:"has_pending_prints"`
}

// Badge resolves the badge with errored > unsent > printing priority.
func (s PrintState) Badge() PrintBadge {
	switch {
	case s.HasPrintErrors:
		return PrintBadgeError
	case s.HasUnsentItems:
		return PrintBadgeUnsent
	case s.HasPendingPrints:
		return PrintBadgePrinting
	default:
		return PrintBadgeNone
	}
}

// DerivePrintState folds print-log statuses into the derived booleans.
func DerivePrintState(statuses []PrintLogStatus) PrintState {
	var state PrintState
	for _, status := range statuses {
		switch status {
		case PrintLogErrored:
			state.HasPrintErrors = true
		case PrintLogPending:
			state.HasUnsentItems = true
		case PrintLogProcessing:
			state.HasPendingPrints = true
		}
	}
	return state
}
