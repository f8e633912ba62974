package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/anikama/anikama-cli/internal/wallet"
)

// topUpSteps is a network switch followed by the transfer.
const topUpSteps = 2

var topupCmd = &cobra.Command{
	Use:   "topup",
	Short: "Buy coins with an on-chain transfer",
	Long: `Top up your coin balance. The configured amount is sent from your
wallet (ANIKAMA_WALLET_KEY) to the top-up address, then reported to the
backend, which credits the coins.

If the wallet is on the wrong network it is switched first and you are
asked to confirm again.`,
	RunE: runTopUp,
}

func runTopUp(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	if _, err := requireSession(); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(cfg.TopUpAmount)
	if err != nil {
		return fmt.Errorf("parse ANIKAMA_TOPUP_AMOUNT: %w", err)
	}

	in := bufio.NewReader(cmd.InOrStdin())
	w, err := connectWallet(out, in)
	if err != nil {
		return err
	}

	closed := make(chan struct{})
	flow := wallet.NewFlow(w, apiClient, clockwork.NewRealClock(), wallet.Config{
		ChainID:     cfg.WalletChainID,
		Destination: cfg.TopUpDestination,
		Amount:      amount,
	},
		wallet.WithOnSuccess(sessions.SetBalance),
		wallet.WithOnClose(func() { close(closed) }),
		wallet.WithLogger(logger),
		wallet.WithMetrics(collector),
	)
	defer flow.Close()

	if err := driveTopUp(ctx, out, flow); err != nil {
		return err
	}

	select {
	case <-closed:
	case <-ctx.Done():
	}
	return nil
}

// connectWallet returns the configured wallet, or nil when no key is set.
func connectWallet(out io.Writer, in *bufio.Reader) (wallet.Wallet, error) {
	if cfg.WalletKey == "" {
		return nil, nil
	}
	if cfg.WalletRPCURL == "" {
		return nil, errors.New("ANIKAMA_WALLET_RPC_URL is required with ANIKAMA_WALLET_KEY")
	}
	// The wallet starts on the fallback endpoint when one is set.
	urls := []string{cfg.WalletFallbackRPCURL, cfg.WalletRPCURL}
	w, err := wallet.NewEthWallet(cfg.WalletKey, urls, wallet.WithConfirm(confirmTransfer(out, in)))
	if err != nil {
		return nil, fmt.Errorf("connect wallet: %w", err)
	}
	return w, nil
}

// confirmTransfer asks on the terminal before anything is signed.
func confirmTransfer(out io.Writer, in *bufio.Reader) wallet.ConfirmFunc {
	return func(ctx context.Context, t wallet.Transfer) (bool, error) {
		fmt.Fprintf(out, "Send %s ETH\n  from %s\n  to   %s\n  on chain %d\nConfirm? [y/N] ",
			t.Amount.String(), t.From, t.To, t.ChainID)
		line, err := in.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return false, fmt.Errorf("read confirmation: %w", err)
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

// driveTopUp presses the flow's action until the deposit is credited or the
// flow fails, reporting each step.
func driveTopUp(ctx context.Context, w io.Writer, f *wallet.Flow) error {
	for i := 0; i < topUpSteps; i++ {
		err := f.Action(ctx)
		if err != nil {
			logger.Debug("top up step failed", "state", f.Prior().String(), "error", err)
		}

		switch f.State() {
		case wallet.StateDone:
			res := f.Result()
			fmt.Fprintf(w, "%s %s\n", defaultTheme.successStyle().Render("✓"), res.Message)
			fmt.Fprintf(w, "  +%d coins, balance %d\n", res.CoinsAdded, res.NewBalance)
			fmt.Fprintf(w, "  %s\n", defaultTheme.hintStyle().Render("tx "+f.TxHash()))
			return nil
		case wallet.StateError:
			return fmt.Errorf("top up: %s", f.Message())
		case wallet.StateCorrectNetwork:
			if err == nil {
				fmt.Fprintln(w, "Switched wallet network.")
				continue
			}
		}
		if err != nil {
			return fmt.Errorf("top up: %w", err)
		}
	}
	return errors.New("top up: did not complete")
}
