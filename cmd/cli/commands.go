package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/blockpay/internal/adapter/http/dto"
)

const tokenEnv = "BLOCKPAY_TOKEN"

type rootOptions struct {
	baseURL string
	token   string
	timeout time.Duration
	asJSON  bool
}

func (o *rootOptions) client() *apiClient {
	token := o.token
	if token == "" {
		token = os.Getenv(tokenEnv)
	}
	return newAPIClient(o.baseURL, token, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "blockpay",
		Short:         "BlockPay CLI tool",
		Long:          `A command line interface for sending payments and browsing wallet history through the BlockPay API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the BlockPay API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", "", "Session token (defaults to $"+tokenEnv+")")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "Request timeout; transfers wait for confirmation")
	rootCmd.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print raw JSON")

	rootCmd.AddCommand(
		tokenCmd(opts),
		walletsCmd(opts),
		linkCmd(opts),
		selectCmd(opts),
		balanceCmd(opts),
		sendCmd(opts),
		reconcileCmd(opts),
		historyCmd(opts),
	)

	return rootCmd
}

func tokenCmd(opts *rootOptions) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Log in and print a session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.AuthResponse
			err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/auth/login", nil,
				dto.LoginRequest{Email: email, Password: password}, &resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("password")
	return cmd
}

func walletsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "wallets",
		Short: "List your wallets",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.WalletsResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/wallets/", nil, nil, &resp); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printWallets(cmd.OutOrStdout(), resp.Wallets)
			return nil
		},
	}
}

func linkCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link <username> <address>",
		Short: "Register a username for an address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.WalletResponse
			err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/wallets/", nil,
				dto.LinkWalletRequest{Username: args[0], Address: args[1]}, &resp)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s to %s (id %s)\n", resp.Label, resp.Address, resp.ID)
			return nil
		},
	}
}

func selectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select <wallet-id>",
		Short: "Make a wallet the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.WalletsResponse
			err := opts.client().do(cmd.Context(), http.MethodPut, "/api/v1/session/active", nil,
				dto.SelectWalletRequest{WalletID: args[0]}, &resp)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printWallets(cmd.OutOrStdout(), resp.Wallets)
			return nil
		},
	}
}

func balanceCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the active wallet's balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.BalanceResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/balance", nil, nil, &resp); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			line := fmt.Sprintf("%s %s", resp.Amount, resp.Symbol)
			if resp.Stale {
				line += " (stale: " + resp.Error + ")"
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
}

func sendCmd(opts *rootOptions) *cobra.Command {
	var password, from string

	cmd := &cobra.Command{
		Use:   "send <recipient> <amount>",
		Short: "Send a payment to a username",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.TransferResponse
			err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/transfers/", nil, dto.TransferRequest{
				SenderWalletID: from,
				Recipient:      args[0],
				Amount:         args[1],
				Password:       password,
			}, &resp)
			if err != nil {
				var apiErr *apiError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusGatewayTimeout && apiErr.TxReference != "" {
					return fmt.Errorf("%w\nrun `blockpay reconcile %s` later to check it", err, apiErr.TxReference)
				}
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Sent %s %s to %s\n", resp.Amount, resp.Symbol, recipientLabel(resp))
			fmt.Fprintf(out, "tx %s in block %d\n", resp.TxReference, resp.BlockNumber)
			if resp.Warning != "" {
				fmt.Fprintf(out, "warning: %s\n", resp.Warning)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Account password, re-checked before sending")
	cmd.Flags().StringVar(&from, "from", "", "Sender wallet id; must be the active wallet")
	cmd.MarkFlagRequired("password")
	return cmd
}

func reconcileCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <tx-reference>",
		Short: "Re-check a transfer whose confirmation timed out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp dto.TransferResponse
			err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/transfers/reconcile", nil,
				dto.ReconcileRequest{TxReference: args[0]}, &resp)
			if err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Confirmed in block %d\n", resp.BlockNumber)
			return nil
		},
	}
}

func historyCmd(opts *rootOptions) *cobra.Command {
	var direction, wallet, date, amount, order string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List sent and received payments",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "direction", direction)
			setIf(q, "wallet", wallet)
			setIf(q, "date", date)
			setIf(q, "amount", amount)
			setIf(q, "order", order)
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}

			var entries []dto.LedgerEntryResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/api/v1/history", q, nil, &entries); err != nil {
				return err
			}
			if opts.asJSON {
				return printJSON(cmd.OutOrStdout(), entries)
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "", "sent or received")
	cmd.Flags().StringVar(&wallet, "wallet", "", "Only entries for this wallet username")
	cmd.Flags().StringVar(&date, "date", "", "Only entries on this UTC day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&amount, "amount", "", "Only amounts containing this text")
	cmd.Flags().StringVar(&order, "order", "", "newest or oldest")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries")
	return cmd
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func recipientLabel(resp dto.TransferResponse) string {
	if resp.Recipient == nil {
		return "recipient"
	}
	return resp.Recipient.Label
}

func printWallets(w io.Writer, wallets []*dto.WalletResponse) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tUSERNAME\tADDRESS")
	for _, wl := range wallets {
		marker := ""
		if wl.Active {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, wl.ID, wl.Label, wl.Address)
	}
	tw.Flush()
}

func printHistory(w io.Writer, entries []dto.LedgerEntryResponse) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tDESCRIPTION\tTX")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Description, truncate(e.TxReference, 14))
	}
	tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
