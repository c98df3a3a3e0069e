package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"

	"github.com/iho/blockpay/internal/domain"
	"github.com/iho/blockpay/internal/usecase"
)

// PaymentABI describes the payment contract's entry point.
const PaymentABI = `[{"type":"function","name":"sendPayment","stateMutability":"payable","inputs":[{"name":"recipient","type":"address"}],"outputs":[]}]`

// ErrSignerUnavailable is returned when the node does not manage the
// requested account.
var ErrSignerUnavailable = errors.New("no signer for address")

// SignerProvider hands out signers for accounts unlocked on the node.
type SignerProvider struct {
	client *Client
	abi    abi.ABI
	logger zerolog.Logger
}

// NewSignerProvider creates a provider that encodes calls with contractABI.
func NewSignerProvider(client *Client, contractABI string, logger zerolog.Logger) (*SignerProvider, error) {
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	return &SignerProvider{
		client: client,
		abi:    parsed,
		logger: logger.With().Str("component", "signer").Logger(),
	}, nil
}

// Signer returns a signer for address if the node manages it.
func (p *SignerProvider) Signer(ctx context.Context, address string) (usecase.Signer, error) {
	var accounts []common.Address
	err := p.client.call(ctx, "eth_accounts", func() error {
		return p.client.rpc.CallContext(ctx, &accounts, "eth_accounts")
	})
	if err != nil {
		return nil, fmt.Errorf("list node accounts: %w", err)
	}

	want := common.HexToAddress(address)
	for _, a := range accounts {
		if a == want {
			return &NodeSigner{address: a, provider: p}, nil
		}
	}

	return nil, fmt.Errorf("%w %s", ErrSignerUnavailable, address)
}

// NodeSigner sends transactions through eth_sendTransaction.
type NodeSigner struct {
	address  common.Address
	provider *SignerProvider
}

// Address returns the signing account.
func (s *NodeSigner) Address() string {
	return s.address.Hex()
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Data  hexutil.Bytes   `json:"data"`
}

// SendCall submits a contract call and returns the transaction hash.
func (s *NodeSigner) SendCall(ctx context.Context, req domain.CallRequest) (string, error) {
	if !domain.SameAddress(req.From, s.address.Hex()) {
		return "", fmt.Errorf("%w: call from %s on signer %s", ErrSignerUnavailable, req.From, s.address.Hex())
	}
	if !common.IsHexAddress(req.Contract) {
		return "", fmt.Errorf("%w: contract %q", domain.ErrInvalidAddress, req.Contract)
	}

	data, err := s.provider.pack(req.Method, req.Args)
	if err != nil {
		return "", err
	}

	to := common.HexToAddress(req.Contract)
	args := sendTxArgs{
		From: s.address,
		To:   &to,
		Data: data,
	}
	if req.ValueWei != nil && req.ValueWei.Sign() > 0 {
		args.Value = (*hexutil.Big)(req.ValueWei)
	}

	var hash common.Hash
	err = s.provider.client.call(ctx, "eth_sendTransaction", func() error {
		return s.provider.client.rpc.CallContext(ctx, &hash, "eth_sendTransaction", args)
	})
	if err != nil {
		return "", fmt.Errorf("send %s: %w", req.Method, err)
	}

	s.provider.logger.Info().
		Str("from", s.address.Hex()).
		Str("method", req.Method).
		Str("tx", hash.Hex()).
		Msg("transaction submitted")

	return hash.Hex(), nil
}

// pack encodes method with string args converted to the ABI input types.
func (p *SignerProvider) pack(method string, raw []string) ([]byte, error) {
	m, ok := p.abi.Methods[method]
	if !ok {
		return nil, fmt.Errorf("contract has no method %q", method)
	}
	if len(raw) != len(m.Inputs) {
		return nil, fmt.Errorf("method %s takes %d args, got %d", method, len(m.Inputs), len(raw))
	}

	values := make([]any, len(raw))
	for i, in := range m.Inputs {
		switch in.Type.T {
		case abi.AddressTy:
			if !common.IsHexAddress(raw[i]) {
				return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAddress, raw[i])
			}
			values[i] = common.HexToAddress(raw[i])
		case abi.UintTy, abi.IntTy:
			n, ok := new(big.Int).SetString(raw[i], 10)
			if !ok {
				return nil, fmt.Errorf("argument %s: %q is not an integer", in.Name, raw[i])
			}
			values[i] = n
		case abi.StringTy:
			values[i] = raw[i]
		default:
			return nil, fmt.Errorf("argument %s: unsupported type %s", in.Name, in.Type)
		}
	}

	return p.abi.Pack(method, values...)
}
