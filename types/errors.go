package types

import (
	"errors"
	"fmt"
)

// Input validation errors, reported before a run is created.
var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidAddress   = errors.New("invalid destination address")
	ErrUnsupportedChain = errors.New("unsupported chain")
)

// Run failure errors. These become the terminal failure cause of a run,
// never a bare error surfaced to an API caller.
var (
	// burn confirmed on-chain but emitted no bridge message; manual
	// remediation required
	ErrMessageEventNotFound = errors.New("MessageSent event not found in transaction logs")

	// definitive error response from the attestation service, as opposed
	// to "attestation not yet available"
	ErrAttestationService = errors.New("attestation service error")

	// transient collaborator outage, absorbed by polling loops
	ErrGatewayUnavailable = errors.New("wallet gateway unavailable")

	ErrRunNotCancellable = errors.New("burn already confirmed, run can only complete")

	// the stored phase moved between read and write; the caller's copy of
	// the run is stale and must be re-read
	ErrPhaseConflict = errors.New("run phase changed since read")
)

// TransactionFailedError is returned when a custody transaction reaches
// the FAILED terminal state. Not retried automatically, the orchestrator
// decides whether the run is aborted.
type TransactionFailedError struct {
	TransactionID string
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed", e.TransactionID)
}

// FailCause is the structured cause carried by a failed run.
type FailCause string

const (
	CauseTransactionFailed   FailCause = "transaction_failed"
	CauseMessageNotFound     FailCause = "message_event_not_found"
	CauseAttestationService  FailCause = "attestation_service_error"
	CauseUnsupportedChain    FailCause = "unsupported_chain"
	CauseAttestationTimeout  FailCause = "attestation_timeout"
	CauseCancelledBeforeBurn FailCause = "cancelled_before_burn"
	CauseInternal            FailCause = "internal_error"
)
