package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/resort/internal/session"
	"github.com/matheus3301/resort/internal/tui/client"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/status"
)

const callTimeout = 10 * time.Second

var (
	sessionFlag string
	outputFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "resortctl",
	Short: "Control a resort unread-badge daemon",
	Long: `resortctl queries and drives the resortd daemon of one session.

Examples:
  resortctl status
  resortctl unread watch
  resortctl --output json conversations
  resortctl login --user cust-1 --role customer`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if _, err := parseFormat(outputFlag); err != nil {
			return err
		}
		return session.ValidateName(session.Resolve(sessionFlag))
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&sessionFlag, "session", "", "session name (overrides config default)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "text", "output format: text, json or yaml")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(unreadCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(favoritesCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

// withClient dials the session's daemon and runs fn with a bounded context.
func withClient(fn func(ctx context.Context, c *client.Client) error) error {
	return withClientContext(context.Background(), callTimeout, fn)
}

// withClientContext is withClient with a caller-provided parent. A zero
// timeout leaves the context unbounded.
func withClientContext(parent context.Context, timeout time.Duration, fn func(ctx context.Context, c *client.Client) error) error {
	name := session.Resolve(sessionFlag)
	c, err := client.New(session.SocketPath(name))
	if err != nil {
		return fmt.Errorf("cannot connect to daemon for session %q: %w", name, err)
	}
	defer func() { _ = c.Close() }()

	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}
	if err := fn(ctx, c); err != nil {
		return rpcError(err)
	}
	return nil
}

// rpcError strips the gRPC framing from daemon errors.
func rpcError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	return fmt.Errorf("%s: %s", st.Code(), st.Message())
}

func out() *printer {
	f, _ := parseFormat(outputFlag)
	return &printer{w: os.Stdout, format: f}
}
