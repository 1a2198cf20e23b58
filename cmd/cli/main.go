package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iho/balanceledger/internal/adapter/http/middleware"
	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/infrastructure/auth"
)

type options struct {
	baseURL string
	timeout time.Duration
	token   string
	userID  string
	role    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "balanceledger-cli",
		Short:         "Balance ledger operator CLI",
		Long:          `A command line interface for operating the balance ledger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", envOr("BALANCELEDGER_URL", "http://localhost:8080"), "Base URL of the balance ledger API")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	flags.StringVar(&opts.token, "token", os.Getenv("BALANCELEDGER_TOKEN"), "Bearer token")
	flags.StringVar(&opts.userID, "as", "", "Caller user ID when the API trusts identity headers")
	flags.StringVar(&opts.role, "as-role", string(domain.RoleAdmin), "Caller role when the API trusts identity headers")

	rootCmd.AddCommand(
		balanceCmd(opts),
		entriesCmd(opts),
		adjustCmd(opts),
		resolveCmd(opts),
		depositsCmd(opts),
		sweepCmd(opts),
		tokenCmd(),
	)

	return rootCmd
}

func balanceCmd(opts *options) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "balance",
		Short: "Show available balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/balance"
			if userID != "" {
				path = "/api/v1/admin/users/" + url.PathEscape(userID) + "/balance"
			}
			return opts.call(cmd, http.MethodGet, path, nil)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Show another user's balance (admin)")

	return cmd
}

func entriesCmd(opts *options) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List ledger entries of the caller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, fmt.Sprintf("/api/v1/entries?limit=%d&offset=%d", limit, offset), nil)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	return cmd
}

func adjustCmd(opts *options) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "adjust <credit|deduct> <user-id> <amount>",
		Short: "Append an operator credit or deduct",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := domain.EntryKind(strings.ToLower(args[0]))
			if !kind.IsValid() {
				return fmt.Errorf("kind must be credit or deduct, got %q", args[0])
			}
			return opts.call(cmd, http.MethodPost, "/api/v1/admin/adjustments", map[string]string{
				"user_id": args[1],
				"kind":    string(kind),
				"amount":  args[2],
				"reason":  reason,
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded on the entry")
	_ = cmd.MarkFlagRequired("reason")

	return cmd
}

func resolveCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve pending orders and withdrawals",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "order <id> <confirmed|failed>",
			Short: "Confirm or fail a pending order",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.call(cmd, http.MethodPost, "/api/v1/admin/orders/"+url.PathEscape(args[0])+"/resolve",
					map[string]string{"status": args[1]})
			},
		},
		&cobra.Command{
			Use:   "withdrawal <id> <approved|rejected>",
			Short: "Approve or reject a pending withdrawal",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.call(cmd, http.MethodPost, "/api/v1/admin/withdrawals/"+url.PathEscape(args[0])+"/resolve",
					map[string]string{"status": args[1]})
			},
		},
	)

	return cmd
}

func depositsCmd(opts *options) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "deposits",
		Short: "List deposits of the caller",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodGet, fmt.Sprintf("/api/v1/deposits?limit=%d&offset=%d", limit, offset), nil)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")

	return cmd
}

func sweepCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one deposit reconciliation tick now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.call(cmd, http.MethodPost, "/api/v1/admin/deposits/sweep", nil)
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		secret   string
		role     string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a development bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			token, err := auth.NewJWTManager(secret, duration).Generate(&domain.User{
				ID:   args[0],
				Role: domain.Role(role),
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET"), "HMAC signing secret")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleUser), "Role claim")
	cmd.Flags().DurationVar(&duration, "ttl", time.Hour, "Token lifetime")

	return cmd
}

// call sends one API request and pretty-prints the JSON response.
func (o *options) call(cmd *cobra.Command, method, path string, payload any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(cmd.Context(), method, strings.TrimRight(o.baseURL, "/")+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	} else if o.userID != "" {
		req.Header.Set(middleware.UserIDHeader, o.userID)
		req.Header.Set(middleware.UserRoleHeader, o.role)
	}

	client := &http.Client{Timeout: o.timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return printJSON(cmd.OutOrStdout(), data)
}

func printJSON(w io.Writer, data []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		_, err = w.Write(data)
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
