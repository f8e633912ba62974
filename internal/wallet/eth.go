package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
)

// transferGas is the gas limit of a plain value transfer.
const transferGas = 21000

// weiDecimals is the number of decimals of the native asset.
const weiDecimals = 18

// Chain is the subset of an Ethereum RPC client the wallet uses.
type Chain interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Dialer connects to an RPC endpoint. The returned func releases it.
type Dialer func(ctx context.Context, url string) (Chain, func(), error)

// Transfer describes a transaction awaiting the user's confirmation.
type Transfer struct {
	From    string
	To      string
	Amount  decimal.Decimal
	ChainID int64
}

// ConfirmFunc asks the user to approve a transfer. Returning false rejects it.
type ConfirmFunc func(ctx context.Context, t Transfer) (bool, error)

// EthWallet signs transfers with a local key and sends them over JSON-RPC.
// It is "connected" to one endpoint at a time and switches network by
// moving to another configured endpoint serving the requested chain.
type EthWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	urls    []string
	dial    Dialer
	confirm ConfirmFunc

	mu      sync.Mutex
	current string
}

// EthOption configures an EthWallet.
type EthOption func(*EthWallet)

// WithDialer replaces the RPC dialer.
func WithDialer(d Dialer) EthOption {
	return func(w *EthWallet) { w.dial = d }
}

// WithConfirm sets the prompt run before signing.
func WithConfirm(fn ConfirmFunc) EthOption {
	return func(w *EthWallet) { w.confirm = fn }
}

// NewEthWallet loads a hex private key and connects to the first of urls.
func NewEthWallet(hexKey string, urls []string, opts ...EthOption) (*EthWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse wallet key: %w", err)
	}

	var endpoints []string
	for _, u := range urls {
		if u != "" {
			endpoints = append(endpoints, u)
		}
	}
	if len(endpoints) == 0 {
		return nil, errors.New("wallet: no RPC endpoint configured")
	}

	w := &EthWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		urls:    endpoints,
		dial:    dialEthclient,
		current: endpoints[0],
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func dialEthclient(ctx context.Context, url string) (Chain, func(), error) {
	c, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return c, c.Close, nil
}

// Address returns the wallet's checksummed address.
func (w *EthWallet) Address() string {
	return w.address.Hex()
}

// ChainID returns the chain of the connected endpoint.
func (w *EthWallet) ChainID(ctx context.Context) (int64, error) {
	w.mu.Lock()
	url := w.current
	w.mu.Unlock()
	return w.chainIDAt(ctx, url)
}

func (w *EthWallet) chainIDAt(ctx context.Context, url string) (int64, error) {
	c, release, err := w.dial(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("dial rpc: %w", err)
	}
	defer release()

	id, err := c.ChainID(ctx)
	if err != nil {
		return 0, fmt.Errorf("query chain id: %w", err)
	}
	return id.Int64(), nil
}

// SwitchNetwork moves to a configured endpoint serving chainID.
func (w *EthWallet) SwitchNetwork(ctx context.Context, chainID int64) error {
	for _, url := range w.urls {
		id, err := w.chainIDAt(ctx, url)
		if err != nil {
			continue
		}
		if id == chainID {
			w.mu.Lock()
			w.current = url
			w.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("no RPC endpoint for chain %d", chainID)
}

// SendTransfer signs and broadcasts a legacy value transfer.
func (w *EthWallet) SendTransfer(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(to) {
		return "", fmt.Errorf("invalid destination address %q", to)
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("invalid amount %s", amount)
	}

	w.mu.Lock()
	url := w.current
	w.mu.Unlock()

	c, release, err := w.dial(ctx, url)
	if err != nil {
		return "", fmt.Errorf("dial rpc: %w", err)
	}
	defer release()

	chainID, err := c.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("query chain id: %w", err)
	}

	if w.confirm != nil {
		ok, err := w.confirm(ctx, Transfer{
			From:    w.Address(),
			To:      to,
			Amount:  amount,
			ChainID: chainID.Int64(),
		})
		if err != nil {
			return "", fmt.Errorf("confirm transfer: %w", err)
		}
		if !ok {
			return "", ErrUserRejected
		}
	}

	nonce, err := c.PendingNonceAt(ctx, w.address)
	if err != nil {
		return "", fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := c.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("suggest gas price: %w", err)
	}

	dest := common.HexToAddress(to)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      transferGas,
		To:       &dest,
		Value:    ToWei(amount),
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), w.key)
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	if err := c.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("send transaction: %w", err)
	}
	return signed.Hash().Hex(), nil
}

// ToWei converts an amount of the native asset to wei.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(weiDecimals).BigInt()
}
