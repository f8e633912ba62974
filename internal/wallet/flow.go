// Package wallet implements the coin top-up: an on-chain transfer from the
// user's wallet, then a deposit report so the backend credits the balance.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"

	"github.com/anikama/anikama-cli/internal/client"
	"github.com/anikama/anikama-cli/internal/metrics"
	"github.com/anikama/anikama-cli/internal/models"
)

// AutoCloseDelay is how long the success state shows before the flow closes.
const AutoCloseDelay = 2 * time.Second

// User-facing messages.
const (
	MsgConnectWallet  = "Please connect your wallet first."
	MsgRejected       = "Transaction rejected."
	MsgTxFailed       = "Transaction failed"
	MsgDepositFailed  = "Failed to process deposit"
	MsgNetworkUnknown = "Could not read the wallet network"
)

var (
	// ErrNotConnected is returned when no wallet is connected.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrUserRejected is returned by a Wallet when the user declines to sign.
	ErrUserRejected = errors.New("user rejected the request")
)

// Wallet is an externally connected wallet.
type Wallet interface {
	Address() string
	ChainID(ctx context.Context) (int64, error)
	SwitchNetwork(ctx context.Context, chainID int64) error
	// SendTransfer sends amount of the native asset to to and returns the
	// transaction hash.
	SendTransfer(ctx context.Context, to string, amount decimal.Decimal) (string, error)
}

// Depositor reports a settled transfer to the backend.
type Depositor interface {
	Deposit(ctx context.Context, txHash string, amount float64) (*models.DepositResult, error)
}

// State is the flow's position.
type State int

const (
	StateDisconnected State = iota
	StateWrongNetwork
	StateCorrectNetwork
	StateSubmitting
	StateSettling
	StateDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateWrongNetwork:
		return "connected-wrong-network"
	case StateCorrectNetwork:
		return "connected-correct-network"
	case StateSubmitting:
		return "submitting"
	case StateSettling:
		return "settling"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Config is the transfer the flow performs.
type Config struct {
	ChainID     int64
	Destination string
	Amount      decimal.Decimal
}

// Flow is one top-up attempt.
type Flow struct {
	wallet    Wallet
	depositor Depositor
	clock     clockwork.Clock
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Collector

	onSuccess func(newBalance int)
	onClose   func()

	mu         sync.Mutex
	acting     bool
	state      State
	prior      State
	message    string
	txHash     string
	result     *models.DepositResult
	closed     bool
	closeTimer clockwork.Timer
}

// Option configures a Flow.
type Option func(*Flow)

// WithOnSuccess sets the callback receiving the new balance.
func WithOnSuccess(fn func(newBalance int)) Option {
	return func(f *Flow) { f.onSuccess = fn }
}

// WithOnClose sets the callback run once when the flow closes.
func WithOnClose(fn func()) Option {
	return func(f *Flow) { f.onClose = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

// WithMetrics records transfer timings.
func WithMetrics(m *metrics.Collector) Option {
	return func(f *Flow) { f.metrics = m }
}

// NewFlow creates a flow. w may be nil when no wallet is connected.
func NewFlow(w Wallet, dep Depositor, clock clockwork.Clock, cfg Config, opts ...Option) *Flow {
	f := &Flow{
		wallet:    w,
		depositor: dep,
		clock:     clock,
		cfg:       cfg,
		logger:    slog.Default(),
		state:     StateDisconnected,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Prior returns the state an error interrupted.
func (f *Flow) Prior() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.prior
}

// Message returns the error text to show, or "".
func (f *Flow) Message() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.message
}

// TxHash returns the submitted transaction hash, or "".
func (f *Flow) TxHash() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txHash
}

// Result returns the deposit result once done.
func (f *Flow) Result() *models.DepositResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Closed reports whether the flow has closed.
func (f *Flow) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Refresh reads the wallet's network and settles into one of the three
// connection states.
func (f *Flow) Refresh(ctx context.Context) (State, error) {
	if f.wallet == nil {
		f.set(StateDisconnected)
		return StateDisconnected, nil
	}
	chainID, err := f.wallet.ChainID(ctx)
	if err != nil {
		f.fail(StateDisconnected, MsgNetworkUnknown)
		return StateError, fmt.Errorf("read chain id: %w", err)
	}
	s := StateWrongNetwork
	if chainID == f.cfg.ChainID {
		s = StateCorrectNetwork
	}
	f.set(s)
	return s, nil
}

// Action is the single button of the top-up: it switches network when on
// the wrong one and otherwise submits the transfer. After a switch the user
// must call Action again to submit. A call made while another is in flight
// does nothing.
func (f *Flow) Action(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New("top up: flow closed")
	}
	if f.acting {
		f.mu.Unlock()
		return nil
	}
	switch f.state {
	case StateSubmitting, StateSettling, StateDone:
		f.mu.Unlock()
		return nil
	case StateError:
		f.state = f.prior
	}
	f.acting = true
	f.message = ""
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.acting = false
		f.mu.Unlock()
	}()

	if f.wallet == nil {
		f.fail(StateDisconnected, MsgConnectWallet)
		return ErrNotConnected
	}

	state, err := f.Refresh(ctx)
	if err != nil {
		return err
	}

	if state == StateWrongNetwork {
		f.logger.Info("switching network", "chain_id", f.cfg.ChainID)
		if err := f.wallet.SwitchNetwork(ctx, f.cfg.ChainID); err != nil {
			f.fail(StateWrongNetwork, txMessage(err))
			return fmt.Errorf("switch network: %w", err)
		}
		f.set(StateCorrectNetwork)
		return nil
	}

	return f.submit(ctx)
}

func (f *Flow) submit(ctx context.Context) error {
	f.set(StateSubmitting)

	start := time.Now()
	hash, err := f.wallet.SendTransfer(ctx, f.cfg.Destination, f.cfg.Amount)
	f.metrics.RecordResult(metrics.OpWalletSubmit, time.Since(start), err != nil)
	if err != nil {
		f.fail(StateCorrectNetwork, txMessage(err))
		return fmt.Errorf("send transfer: %w", err)
	}
	f.logger.Info("transfer sent", "tx_hash", hash, "amount", f.cfg.Amount.String())

	f.mu.Lock()
	f.txHash = hash
	f.state = StateSettling
	f.mu.Unlock()

	res, err := f.depositor.Deposit(ctx, hash, f.cfg.Amount.InexactFloat64())
	if err != nil {
		f.fail(StateCorrectNetwork, depositMessage(err))
		return fmt.Errorf("report deposit: %w", err)
	}

	f.mu.Lock()
	f.result = res
	f.state = StateDone
	if !f.closed {
		f.closeTimer = f.clock.AfterFunc(AutoCloseDelay, f.Close)
	}
	f.mu.Unlock()

	if f.onSuccess != nil {
		f.onSuccess(res.NewBalance)
	}
	return nil
}

// Close cancels the auto-close timer and closes the flow. Safe to call twice.
func (f *Flow) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	if f.closeTimer != nil {
		f.closeTimer.Stop()
		f.closeTimer = nil
	}
	f.mu.Unlock()

	if f.onClose != nil {
		f.onClose()
	}
}

func (f *Flow) set(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

func (f *Flow) fail(prior State, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prior = prior
	f.state = StateError
	f.message = msg
	f.logger.Warn("top up failed", "state", prior.String(), "message", msg)
}

func txMessage(err error) string {
	if errors.Is(err, ErrUserRejected) || strings.Contains(err.Error(), "User rejected") {
		return MsgRejected
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgTxFailed
}

func depositMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return MsgDepositFailed
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgDepositFailed
}
