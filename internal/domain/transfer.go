package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// TransferStage is a step of the payment transfer state machine.
type TransferStage string

const (
	StageIdle           TransferStage = "idle"
	StageValidating     TransferStage = "validating"
	StageResolving      TransferStage = "resolving"
	StageAuthenticating TransferStage = "authenticating"
	StageSubmitting     TransferStage = "submitting"
	StageConfirming     TransferStage = "confirming"
	StageRecording      TransferStage = "recording"
	StageDone           TransferStage = "done"
	StageFailed         TransferStage = "failed"
)

func (s TransferStage) String() string {
	return string(s)
}

// Terminal reports whether no further transition follows s.
func (s TransferStage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// TransferIntent is what the user asked for. Amount is the raw entered text.
type TransferIntent struct {
	SenderWalletID    string
	RecipientUsername string
	Amount            string
}

// TransferOutcome describes a transfer that was confirmed on-chain.
type TransferOutcome struct {
	TxReference string
	Amount      decimal.Decimal
	Sender      *Wallet
	Recipient   *Wallet
	BlockNumber uint64
	ConfirmedAt time.Time
	// RecordingWarning is set when the transfer succeeded but the ledger
	// write failed. It wraps ErrRecording.
	RecordingWarning error
}

// PendingTransfer is a submitted transfer whose confirmation was not
// observed in time. It carries what is needed to record it later.
type PendingTransfer struct {
	TxReference string          `json:"tx_reference"`
	Sender      Wallet          `json:"sender"`
	Recipient   Wallet          `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// Receipt is the chain's verdict on an included transaction.
type Receipt struct {
	TxReference string
	BlockNumber uint64
	Succeeded   bool
}

// CallRequest is a contract call handed to an external signer.
type CallRequest struct {
	From     string
	Contract string
	Method   string
	Args     []string
	// ValueWei is the native value attached to the call, in wei.
	ValueWei *big.Int
}
