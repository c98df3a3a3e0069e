package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
	"github.com/iho/blockpay/internal/usecase/mocks"
)

const (
	aliceAddr   = "0x52908400098527886E0F7030069857D2E4169EE7"
	savingsAddr = "0x8617E340B3D01FA5F11F306F4090FD50E238070D"
	bobAddr     = "0xde709f2102306220921060314715629080e2fb77"
	contract    = "0x27b1fdb04752bbc536007a920d24acb045561c26"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func aliceWallet() *domain.Wallet {
	return &domain.Wallet{ID: "w-alice", OwnerUserID: "user-a", Username: "alice", Address: aliceAddr, CreatedAt: epoch}
}

func savingsWallet() *domain.Wallet {
	return &domain.Wallet{ID: "w-savings", OwnerUserID: "user-a", Username: "alice.savings", Address: savingsAddr, CreatedAt: epoch.Add(time.Hour)}
}

func bobWallet() *domain.Wallet {
	return &domain.Wallet{ID: "w-bob", OwnerUserID: "user-b", Username: "bob", Address: bobAddr, CreatedAt: epoch}
}

type engineFixture struct {
	walletRepo *mocks.MockWalletRepository
	ledgerRepo *mocks.MockLedgerRepository
	identity   *mocks.MockIdentityProvider
	signers    *mocks.MockSignerProvider
	signer     *mocks.MockSigner
	chain      *mocks.MockChainClient
	lock       *mocks.MockInFlightLock
	publisher  *mocks.MockEventPublisher
	directory  *usecase.DirectoryUseCase
	registry   *usecase.WalletRegistry
	ledger     *usecase.LedgerUseCase
	engine     *usecase.TransferEngine
	stages     []domain.TransferStage
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	logger := zerolog.Nop()

	f := &engineFixture{
		walletRepo: mocks.NewMockWalletRepository(aliceWallet(), savingsWallet(), bobWallet()),
		ledgerRepo: mocks.NewMockLedgerRepository(),
		identity:   mocks.NewMockIdentityProvider(ctrl),
		signers:    mocks.NewMockSignerProvider(ctrl),
		signer:     mocks.NewMockSigner(ctrl),
		chain:      mocks.NewMockChainClient(ctrl),
		lock:       mocks.NewMockInFlightLock(),
		publisher:  mocks.NewMockEventPublisher(),
	}

	f.identity.EXPECT().
		CurrentUser(gomock.Any()).
		Return(&domain.Identity{UserID: "user-a", Email: "alice@example.com"}, true).
		AnyTimes()

	idGen := mocks.NewMockIDGenerator()
	f.directory = usecase.NewDirectoryUseCase(f.walletRepo, idGen, nil, logger, nil)
	f.registry = usecase.NewWalletRegistry(f.directory, mocks.NewMockSessionStore(), logger)
	f.ledger = usecase.NewLedgerUseCase(mocks.NewMockTransactionManager(), f.ledgerRepo, idGen, nil, logger, nil)
	f.engine = usecase.NewTransferEngine(
		f.directory,
		usecase.NewReauthGate(f.identity, logger),
		f.signers,
		f.chain,
		f.ledger,
		f.lock,
		f.publisher,
		idGen,
		usecase.TransferEngineConfig{ContractAddress: contract, ConfirmationTimeout: time.Second},
		logger,
		nil,
	)

	if _, err := f.registry.Load(context.Background(), "user-a", nil); err != nil {
		t.Fatalf("load registry: %v", err)
	}

	return f
}

func (f *engineFixture) input(recipient, amount string) usecase.TransferInput {
	return usecase.TransferInput{
		Registry: f.registry,
		Intent: domain.TransferIntent{
			SenderWalletID:    "w-alice",
			RecipientUsername: recipient,
			Amount:            amount,
		},
		Secret: "correct horse",
		Observer: func(_, to domain.TransferStage) {
			f.stages = append(f.stages, to)
		},
	}
}

func (f *engineFixture) reached(stage domain.TransferStage) bool {
	for _, s := range f.stages {
		if s == stage {
			return true
		}
	}
	return false
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
