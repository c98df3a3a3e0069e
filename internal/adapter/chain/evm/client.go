// Package evm talks to an EVM JSON-RPC node: native balances, receipt
// polling and contract calls sent from node-managed accounts.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	geth "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/infrastructure/metrics"
)

// Config holds node connection settings.
type Config struct {
	RPCURL       string
	APIKey       string
	RateLimit    float64
	PollInterval time.Duration
	HTTPTimeout  time.Duration
}

// backend is the subset of ethclient.Client the Client uses.
type backend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// caller is the subset of rpc.Client used for raw calls.
type caller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// Client implements usecase.ChainClient.
type Client struct {
	eth          backend
	rpc          caller
	closer       func()
	limiter      *rate.Limiter
	pollInterval time.Duration
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

// Dial connects to the node at cfg.RPCURL. Requests carry cfg.APIKey as a
// bearer token when set.
func Dial(cfg Config, logger zerolog.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("chain rpc url is required")
	}

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
		Transport: &apiKeyTransport{
			base:   http.DefaultTransport,
			apiKey: cfg.APIKey,
		},
	}

	rpcClient, err := rpc.DialHTTPWithClient(cfg.RPCURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	c := newClient(ethclient.NewClient(rpcClient), rpcClient, cfg, logger, m)
	c.closer = rpcClient.Close
	return c, nil
}

func newClient(eth backend, rpcCaller caller, cfg Config, logger zerolog.Logger, m *metrics.Metrics) *Client {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 2 * time.Second
	}

	return &Client{
		eth:          eth,
		rpc:          rpcCaller,
		limiter:      rate.NewLimiter(limit, 1),
		pollInterval: poll,
		logger:       logger.With().Str("component", "chain").Logger(),
		metrics:      m,
	}
}

// Close releases the underlying connection.
func (c *Client) Close() {
	if c.closer != nil {
		c.closer()
	}
}

// BalanceAt returns the latest native balance of address in wei.
func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, address)
	}

	var balance *big.Int
	err := c.call(ctx, "eth_getBalance", func() error {
		var err error
		balance, err = c.eth.BalanceAt(ctx, common.HexToAddress(address), nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get balance of %s: %w", address, err)
	}

	return balance, nil
}

// AwaitConfirmation polls for the receipt of txRef until it is included or
// ctx ends. The caller bounds the wait through ctx.
func (c *Client) AwaitConfirmation(ctx context.Context, txRef string) (*domain.Receipt, error) {
	hash := common.HexToHash(txRef)

	var receipt *types.Receipt
	poll := backoff.WithContext(backoff.NewConstantBackOff(c.pollInterval), ctx)

	err := backoff.Retry(func() error {
		err := c.call(ctx, "eth_getTransactionReceipt", func() error {
			var err error
			receipt, err = c.eth.TransactionReceipt(ctx, hash)
			return err
		})
		if err != nil && !errors.Is(err, geth.NotFound) {
			c.logger.Warn().Err(err).Str("tx", txRef).Msg("receipt lookup failed, polling again")
		}
		return err
	}, poll)
	if err != nil {
		return nil, fmt.Errorf("await receipt of %s: %w", txRef, err)
	}

	var block uint64
	if receipt.BlockNumber != nil {
		block = receipt.BlockNumber.Uint64()
	}

	return &domain.Receipt{
		TxReference: txRef,
		BlockNumber: block,
		Succeeded:   receipt.Status == types.ReceiptStatusSuccessful,
	}, nil
}

// call applies the rate limit and records the call outcome.
func (c *Client) call(ctx context.Context, method string, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	start := time.Now()
	err := fn()

	if c.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		c.metrics.ChainCalls.WithLabelValues(method, status).Inc()
		c.metrics.ChainDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}

	c.logger.Debug().Str("method", method).Dur("took", time.Since(start)).Err(err).Msg("rpc call")
	return err
}

type apiKeyTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}
	return t.base.RoundTrip(req)
}
