package domain

import (
	"errors"
	"fmt"
)

var (
	// Wallet errors
	ErrWalletNotFound   = errors.New("wallet not found")
	ErrUsernameTaken    = errors.New("username is already in use")
	ErrInvalidUsername  = errors.New("invalid username")
	ErrInvalidAddress   = errors.New("invalid chain address")
	ErrNotWalletOwner   = errors.New("wallet is not owned by the current user")
	ErrNoActiveWallet   = errors.New("no active wallet selected")
	ErrNotAuthenticated = errors.New("no signed-in user")

	// Amount errors
	ErrInvalidAmount   = errors.New("amount must be a positive number")
	ErrAmountPrecision = errors.New("amount has too many decimal places")

	// Transfer errors
	ErrEmptyRecipient   = errors.New("recipient username is required")
	ErrSenderNotActive  = errors.New("sender wallet is not the active wallet")
	ErrSelfTransfer     = errors.New("cannot send to your own address")
	ErrTransferInFlight = errors.New("another transfer from this wallet is in progress")
	ErrTransferReverted = errors.New("transfer was reverted on-chain")

	// Ledger errors
	ErrEntryExists = errors.New("ledger entry already recorded")
)

// Transfer error categories. Every error returned by the transfer engine
// wraps exactly one of these so callers can pick a recovery action.
var (
	ErrValidation          = errors.New("validation failed")
	ErrRecipientNotFound   = errors.New("user not found")
	ErrAuthRejected        = errors.New("reauthentication rejected")
	ErrSubmission          = errors.New("transaction submission failed")
	ErrConfirmationTimeout = errors.New("transaction confirmation not observed")
	ErrRecording           = errors.New("transfer succeeded but history could not be recorded")
	// ErrUnavailable means a lookup needed before submission failed for
	// reasons unrelated to the user's input.
	ErrUnavailable = errors.New("service temporarily unavailable")
)

// Severity tells the UI how loudly to present an error.
type Severity int

const (
	SeverityFailure Severity = iota
	SeverityWarning
)

// TransferError is returned by the transfer engine. Stage is the stage in
// which the transfer stopped; TxReference is set once a transaction was
// handed to the chain.
type TransferError struct {
	Stage       TransferStage
	TxReference string
	Category    error
	Err         error
	// Pending is set on confirmation timeouts so the transfer can be
	// reconciled later.
	Pending *PendingTransfer
}

func (e *TransferError) Error() string {
	if e.TxReference != "" {
		return fmt.Sprintf("transfer failed at %s (tx %s): %v", e.Stage, e.TxReference, e.Err)
	}
	return fmt.Sprintf("transfer failed at %s: %v", e.Stage, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{e.Category, e.Err}
}

// Severity reports whether funds may have moved despite the error.
func (e *TransferError) Severity() Severity {
	if errors.Is(e.Category, ErrRecording) {
		return SeverityWarning
	}
	return SeverityFailure
}

// Retryable reports whether the caller may safely resubmit the same intent,
// i.e. chain state is known to be unchanged.
func (e *TransferError) Retryable() bool {
	switch e.Category {
	case ErrValidation, ErrRecipientNotFound, ErrAuthRejected, ErrSubmission, ErrUnavailable:
		return true
	default:
		return false
	}
}

// NewTransferError builds a TransferError for the given stage and category.
func NewTransferError(stage TransferStage, category, err error) *TransferError {
	return &TransferError{Stage: stage, Category: category, Err: err}
}
