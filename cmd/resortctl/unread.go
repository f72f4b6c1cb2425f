package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/matheus3301/resort/internal/chat"
	"github.com/matheus3301/resort/internal/tui/client"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type unreadResult struct {
	Unread int64  `json:"unread" yaml:"unread"`
	Badge  string `json:"badge" yaml:"badge"`
}

func newUnreadResult(n int64) unreadResult {
	return unreadResult{Unread: n, Badge: chat.BadgeLabel(int(n))}
}

func printUnread(n int64) error {
	r := newUnreadResult(n)
	return out().emit(r, func(w io.Writer) {
		_, _ = fmt.Fprintln(w, r.Unread)
	})
}

var unreadCmd = &cobra.Command{
	Use:   "unread",
	Short: "Read or change the unread badge",
}

var unreadGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the unread count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			n, err := c.UnreadCount(ctx)
			if err != nil {
				return err
			}
			return printUnread(n)
		})
	},
}

var unreadSetCmd = &cobra.Command{
	Use:   "set <n>",
	Short: "Overwrite the unread count (negative values clamp to 0)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid count %q: %w", args[0], err)
		}
		return withClient(func(ctx context.Context, c *client.Client) error {
			got, err := c.SetUnreadCount(ctx, n)
			if err != nil {
				return err
			}
			return printUnread(got)
		})
	},
}

var unreadAdjustCmd = &cobra.Command{
	Use:   "adjust <delta>",
	Short: "Add a delta to the unread count",
	Example: `  resortctl unread adjust 1
  resortctl unread adjust -- -3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		delta, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid delta %q: %w", args[0], err)
		}
		return withClient(func(ctx context.Context, c *client.Client) error {
			got, err := c.AdjustUnreadCount(ctx, delta)
			if err != nil {
				return err
			}
			return printUnread(got)
		})
	},
}

var unreadRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute the count from the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			n, err := c.RefreshUnread(ctx)
			if err != nil {
				return err
			}
			return printUnread(n)
		})
	},
}

var unreadWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the unread count until interrupted",
	Long: `Print the current count and every change. On a terminal in text
format the count is redrawn in place; otherwise one line per change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p := out()
		inPlace := p.format == formatText && term.IsTerminal(int(os.Stdout.Fd()))
		err := withClientContext(ctx, 0, func(ctx context.Context, c *client.Client) error {
			return c.WatchUnreadCount(ctx, func(n int64) {
				if inPlace {
					_, _ = fmt.Fprintf(os.Stdout, "\r\033[Kunread: %d", n)
					return
				}
				_ = p.line(newUnreadResult(n), strconv.FormatInt(n, 10))
			})
		})
		if inPlace {
			fmt.Println()
		}
		return err
	},
}

func init() {
	unreadCmd.AddCommand(unreadGetCmd, unreadSetCmd, unreadAdjustCmd, unreadRefreshCmd, unreadWatchCmd)
}
