package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/infrastructure/metrics"
)

// ErrUnknownPendingTransfer is returned when no timed-out transfer is
// stored under a tx reference.
var ErrUnknownPendingTransfer = errors.New("no pending transfer with this reference")

// RecipientResolver turns a username into its wallet.
type RecipientResolver interface {
	ResolveWallet(ctx context.Context, username string) (*domain.Wallet, error)
}

// CredentialChallenger re-checks the signed-in user's credential.
type CredentialChallenger interface {
	Challenge(ctx context.Context, secret string) error
}

// TransferRecorder writes confirmed or reverted transfers to the ledger.
type TransferRecorder interface {
	RecordTransfer(ctx context.Context, rec domain.TransferRecord) ([]*domain.LedgerEntry, error)
	RecordFailure(ctx context.Context, rec domain.TransferRecord) (*domain.LedgerEntry, error)
	Recorded(ctx context.Context, ownerUserID, txRef string) (bool, error)
}

// StageObserver is told about every stage transition of a transfer.
type StageObserver func(from, to domain.TransferStage)

// TransferEngineConfig holds engine settings.
type TransferEngineConfig struct {
	// ContractAddress is the payment contract every transfer calls.
	ContractAddress     string
	ConfirmationTimeout time.Duration
	LockTTL             time.Duration
}

// TransferEngine runs payment transfers through the stages
// Validating, Resolving, Authenticating, Submitting, Confirming and
// Recording. Nothing is retried once Submitting has started.
type TransferEngine struct {
	resolver  RecipientResolver
	gate      CredentialChallenger
	signers   SignerProvider
	chain     ChainClient
	ledger    TransferRecorder
	lock      InFlightLock
	publisher EventPublisher
	idGen     IDGenerator
	pending   SessionStore
	cfg       TransferEngineConfig
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewTransferEngine creates a new TransferEngine. lock, publisher and m
// may be nil.
func NewTransferEngine(
	resolver RecipientResolver,
	gate CredentialChallenger,
	signers SignerProvider,
	chain ChainClient,
	ledger TransferRecorder,
	lock InFlightLock,
	publisher EventPublisher,
	idGen IDGenerator,
	cfg TransferEngineConfig,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *TransferEngine {
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = DefaultConfirmationTimeout
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultTransferLockTTL
	}

	return &TransferEngine{
		resolver:  resolver,
		gate:      gate,
		signers:   signers,
		chain:     chain,
		ledger:    ledger,
		lock:      lock,
		publisher: publisher,
		idGen:     idGen,
		cfg:       cfg,
		logger:    logger.With().Str("component", "transfer_engine").Logger(),
		metrics:   m,
	}
}

// WithPendingStore keeps timed-out transfers in store so they can be
// reconciled by tx reference alone.
func (e *TransferEngine) WithPendingStore(store SessionStore) *TransferEngine {
	e.pending = store
	return e
}

// TransferInput represents input for a transfer.
type TransferInput struct {
	// Registry is read at the start of the transfer for the active wallet.
	Registry *WalletRegistry
	Intent   domain.TransferIntent
	// Secret is the credential for the reauthentication challenge.
	Secret   string
	Observer StageObserver
}

type transferRun struct {
	engine   *TransferEngine
	observer StageObserver
	stage    domain.TransferStage
	started  time.Time
	logger   zerolog.Logger
}

func (r *transferRun) advance(to domain.TransferStage) {
	from := r.stage
	r.stage = to
	r.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("transfer stage")
	if r.observer != nil {
		r.observer(from, to)
	}
	if to.Terminal() {
		r.engine.observe(to, from, time.Since(r.started))
	}
}

func (r *transferRun) fail(category, err error) *domain.TransferError {
	te := domain.NewTransferError(r.stage, category, err)
	r.logger.Warn().Err(err).Str("stage", r.stage.String()).Msg("transfer failed")
	r.advance(domain.StageFailed)
	return te
}

// Transfer sends intent.Amount from the active wallet to the wallet
// registered under intent.RecipientUsername. Every error is a
// *domain.TransferError. A ledger failure after confirmation is returned
// as TransferOutcome.RecordingWarning with a nil error.
func (e *TransferEngine) Transfer(ctx context.Context, in TransferInput) (*domain.TransferOutcome, error) {
	run := &transferRun{
		engine:   e,
		observer: in.Observer,
		stage:    domain.StageIdle,
		started:  time.Now(),
		logger:   e.logger,
	}

	run.advance(domain.StageValidating)

	session := in.Registry.Session()
	sender, ok := in.Registry.ActiveWallet()
	if !ok {
		return nil, run.fail(domain.ErrValidation, domain.ErrNoActiveWallet)
	}
	if in.Intent.SenderWalletID != "" && in.Intent.SenderWalletID != sender.ID {
		return nil, run.fail(domain.ErrValidation, domain.ErrSenderNotActive)
	}
	if !sender.OwnedBy(session.OwnerUserID) {
		return nil, run.fail(domain.ErrValidation, domain.ErrNotWalletOwner)
	}

	amount, err := domain.ParseAmount(in.Intent.Amount)
	if err != nil {
		return nil, run.fail(domain.ErrValidation, err)
	}

	if domain.NormalizeUsername(in.Intent.RecipientUsername) == "" {
		return nil, run.fail(domain.ErrValidation, domain.ErrEmptyRecipient)
	}

	run.logger = run.logger.With().
		Str("sender", sender.Username).
		Str("recipient", domain.NormalizeUsername(in.Intent.RecipientUsername)).
		Str("amount", amount.String()).
		Logger()

	run.advance(domain.StageResolving)

	recipient, terr := e.resolveRecipient(ctx, run, in.Intent.RecipientUsername)
	if terr != nil {
		return nil, terr
	}
	if domain.SameAddress(sender.Address, recipient.Address) {
		return nil, run.fail(domain.ErrValidation, domain.ErrSelfTransfer)
	}

	release, terr := e.holdWallet(ctx, run, sender.ID)
	if terr != nil {
		return nil, terr
	}
	defer release()

	run.advance(domain.StageAuthenticating)

	if err := e.gate.Challenge(ctx, in.Secret); err != nil {
		return nil, run.fail(domain.ErrAuthRejected, err)
	}

	run.advance(domain.StageSubmitting)

	signer, err := e.signers.Signer(ctx, sender.Address)
	if err != nil {
		return nil, run.fail(domain.ErrSubmission, fmt.Errorf("obtain signer: %w", err))
	}

	txRef, err := signer.SendCall(ctx, domain.CallRequest{
		From:     sender.Address,
		Contract: e.cfg.ContractAddress,
		Method:   PaymentMethod,
		Args:     []string{recipient.Address},
		ValueWei: domain.ToWei(amount),
	})
	if err != nil {
		return nil, run.fail(domain.ErrSubmission, err)
	}
	if txRef == "" {
		return nil, run.fail(domain.ErrSubmission, errors.New("signer returned no transaction reference"))
	}

	run.logger = run.logger.With().Str("tx", txRef).Logger()

	pending := &domain.PendingTransfer{
		TxReference: txRef,
		Sender:      *sender,
		Recipient:   *recipient,
		Amount:      amount,
		SubmittedAt: time.Now().UTC(),
	}

	// The transaction is on its way; caller cancellation no longer applies.
	ctx = context.WithoutCancel(ctx)

	run.advance(domain.StageConfirming)

	return e.confirmAndRecord(ctx, run, pending)
}

// Reconcile re-checks a transfer that previously ended with
// ErrConfirmationTimeout and records it if it was included. The sender
// must be one of registry's wallets and the recipient must still resolve
// to the same address. Already recorded transfers are not written twice.
func (e *TransferEngine) Reconcile(ctx context.Context, registry *WalletRegistry, pending *domain.PendingTransfer) (*domain.TransferOutcome, error) {
	run := &transferRun{
		engine:  e,
		stage:   domain.StageIdle,
		started: time.Now(),
		logger:  e.logger.With().Str("reconcile", "true").Logger(),
	}

	run.advance(domain.StageValidating)

	if pending == nil || pending.TxReference == "" {
		return nil, run.fail(domain.ErrValidation, errors.New("transaction reference is required"))
	}
	if !pending.Amount.IsPositive() {
		return nil, run.fail(domain.ErrValidation, domain.ErrInvalidAmount)
	}

	var sender *domain.Wallet
	for _, w := range registry.Wallets() {
		if w.ID == pending.Sender.ID && domain.SameAddress(w.Address, pending.Sender.Address) {
			sender = w
			break
		}
	}
	if sender == nil {
		return nil, run.fail(domain.ErrValidation, domain.ErrNotWalletOwner)
	}

	// Shares the sender's transfer lock so two reconciles of one reference
	// cannot both pass the already-recorded check.
	release, terr := e.holdWallet(ctx, run, sender.ID)
	if terr != nil {
		return nil, terr
	}
	defer release()

	run.advance(domain.StageResolving)

	recipient, terr := e.resolveRecipient(ctx, run, pending.Recipient.Username)
	if terr != nil {
		return nil, terr
	}
	if !domain.SameAddress(recipient.Address, pending.Recipient.Address) {
		return nil, run.fail(domain.ErrValidation, fmt.Errorf("recipient %s no longer resolves to %s", recipient.Label(), pending.Recipient.Address))
	}

	resolved := *pending
	resolved.Sender = *sender
	resolved.Recipient = *recipient

	run.logger = run.logger.With().Str("tx", pending.TxReference).Logger()
	run.advance(domain.StageConfirming)

	return e.confirmAndRecord(ctx, run, &resolved)
}

// ReconcileReference reconciles a timed-out transfer saved by the pending
// store. Unknown references fail with ErrValidation.
func (e *TransferEngine) ReconcileReference(ctx context.Context, registry *WalletRegistry, txRef string) (*domain.TransferOutcome, error) {
	if e.pending == nil || txRef == "" {
		return nil, domain.NewTransferError(domain.StageValidating, domain.ErrValidation, ErrUnknownPendingTransfer)
	}

	raw, found, err := e.pending.Get(ctx, pendingTransferKey(txRef))
	if err != nil {
		return nil, domain.NewTransferError(domain.StageValidating, domain.ErrValidation, fmt.Errorf("load pending transfer: %w", err))
	}
	if !found {
		return nil, domain.NewTransferError(domain.StageValidating, domain.ErrValidation, ErrUnknownPendingTransfer)
	}

	var pending domain.PendingTransfer
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, domain.NewTransferError(domain.StageValidating, domain.ErrValidation, fmt.Errorf("decode pending transfer: %w", err))
	}

	return e.Reconcile(ctx, registry, &pending)
}

func (e *TransferEngine) resolveRecipient(ctx context.Context, run *transferRun, username string) (*domain.Wallet, *domain.TransferError) {
	recipient, err := e.resolver.ResolveWallet(ctx, username)
	switch {
	case errors.Is(err, domain.ErrRecipientNotFound):
		return nil, run.fail(domain.ErrRecipientNotFound, err)
	case errors.Is(err, domain.ErrEmptyRecipient), errors.Is(err, domain.ErrInvalidUsername):
		return nil, run.fail(domain.ErrValidation, err)
	case err != nil:
		return nil, run.fail(domain.ErrUnavailable, fmt.Errorf("resolve recipient: %w", err))
	}
	return recipient, nil
}

// holdWallet takes the per-wallet transfer lock. The returned release
// func is non-nil whenever the error is nil.
func (e *TransferEngine) holdWallet(ctx context.Context, run *transferRun, walletID string) (func(), *domain.TransferError) {
	if e.lock == nil {
		return func() {}, nil
	}

	key := transferLockKey(walletID)
	acquired, err := e.lock.Acquire(ctx, key, e.cfg.LockTTL)
	if err != nil {
		return nil, run.fail(domain.ErrUnavailable, fmt.Errorf("acquire transfer lock: %w", err))
	}
	if !acquired {
		return nil, run.fail(domain.ErrValidation, domain.ErrTransferInFlight)
	}

	return func() {
		if err := e.lock.Release(context.WithoutCancel(ctx), key); err != nil {
			e.logger.Warn().Err(err).Str("wallet_id", walletID).Msg("failed to release transfer lock")
		}
	}, nil
}

func (e *TransferEngine) savePending(ctx context.Context, pending *domain.PendingTransfer) {
	if e.pending == nil {
		return
	}
	raw, err := json.Marshal(pending)
	if err == nil {
		err = e.pending.Set(ctx, pendingTransferKey(pending.TxReference), string(raw))
	}
	if err != nil {
		e.logger.Error().Err(err).Str("tx", pending.TxReference).Msg("failed to save pending transfer")
	}
}

func (e *TransferEngine) forgetPending(ctx context.Context, txRef string) {
	if e.pending == nil {
		return
	}
	if err := e.pending.Delete(ctx, pendingTransferKey(txRef)); err != nil {
		e.logger.Warn().Err(err).Str("tx", txRef).Msg("failed to drop pending transfer")
	}
}

func (e *TransferEngine) confirmAndRecord(ctx context.Context, run *transferRun, pending *domain.PendingTransfer) (*domain.TransferOutcome, error) {
	txRef := pending.TxReference

	waitCtx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmationTimeout)
	receipt, err := e.chain.AwaitConfirmation(waitCtx, txRef)
	cancel()
	if err != nil {
		te := run.fail(domain.ErrConfirmationTimeout, err)
		te.TxReference = txRef
		te.Pending = pending
		e.savePending(ctx, pending)
		return nil, te
	}
	e.forgetPending(ctx, txRef)

	rec := domain.TransferRecord{
		TxReference: txRef,
		Sender:      pending.Sender,
		Recipient:   pending.Recipient,
		Amount:      pending.Amount.String(),
		Timestamp:   time.Now().UTC(),
	}

	already, err := e.ledger.Recorded(ctx, pending.Sender.OwnerUserID, txRef)
	if err != nil {
		run.logger.Warn().Err(err).Msg("could not check ledger for existing entries")
		already = false
	}

	if !receipt.Succeeded {
		if !already {
			if _, err := e.ledger.RecordFailure(ctx, rec); err != nil && !errors.Is(err, domain.ErrEntryExists) {
				run.logger.Error().Err(err).Msg("failed to record reverted transfer")
			}
		}
		te := run.fail(domain.ErrSubmission, domain.ErrTransferReverted)
		te.TxReference = txRef
		return nil, te
	}

	run.advance(domain.StageRecording)

	sender, recipient := pending.Sender, pending.Recipient
	outcome := &domain.TransferOutcome{
		TxReference: txRef,
		Amount:      pending.Amount,
		Sender:      &sender,
		Recipient:   &recipient,
		BlockNumber: receipt.BlockNumber,
		ConfirmedAt: rec.Timestamp,
	}

	if !already {
		_, err := e.ledger.RecordTransfer(ctx, rec)
		if errors.Is(err, domain.ErrEntryExists) {
			run.logger.Info().Msg("transfer already recorded")
			err = nil
		}
		if err != nil {
			warning := domain.NewTransferError(domain.StageRecording, domain.ErrRecording, err)
			warning.TxReference = txRef
			outcome.RecordingWarning = warning
			run.logger.Error().Err(err).Msg("transfer confirmed but ledger write failed")
		}
	}

	run.advance(domain.StageDone)
	run.logger.Info().Uint64("block", receipt.BlockNumber).Msg("transfer confirmed")

	e.publishConfirmed(ctx, outcome)

	return outcome, nil
}

func (e *TransferEngine) publishConfirmed(ctx context.Context, outcome *domain.TransferOutcome) {
	if e.publisher == nil {
		return
	}

	event := &domain.Event{
		ID:        e.idGen.Generate(),
		Type:      domain.EventTypeTransferConfirmed,
		Key:       outcome.TxReference,
		CreatedAt: outcome.ConfirmedAt,
		Payload: domain.TransferConfirmedEvent{
			TxReference:       outcome.TxReference,
			SenderUsername:    outcome.Sender.Username,
			SenderAddress:     outcome.Sender.Address,
			RecipientUsername: outcome.Recipient.Username,
			RecipientAddress:  outcome.Recipient.Address,
			Amount:            outcome.Amount.String(),
			BlockNumber:       outcome.BlockNumber,
			ConfirmedAt:       outcome.ConfirmedAt.Format(time.RFC3339),
		},
	}

	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn().Err(err).Str("tx", outcome.TxReference).Msg("failed to publish transfer event")
	}
}

func (e *TransferEngine) observe(outcome, lastStage domain.TransferStage, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.TransfersFinished.WithLabelValues(outcome.String(), lastStage.String()).Inc()
	e.metrics.TransferDuration.Observe(elapsed.Seconds())
}
