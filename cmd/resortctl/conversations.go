package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/matheus3301/resort/internal/api"
	"github.com/matheus3301/resort/internal/tui/client"
	"github.com/spf13/cobra"
)

var conversationsCmd = &cobra.Command{
	Use:     "conversations",
	Aliases: []string{"convs"},
	Short:   "List the user's conversations, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			convs, err := c.Conversations(ctx)
			if err != nil {
				return err
			}
			if convs == nil {
				convs = []api.Conversation{}
			}
			return out().emit(convs, func(w io.Writer) { writeConversations(w, convs) })
		})
	},
}

func writeConversations(w io.Writer, convs []api.Conversation) {
	if len(convs) == 0 {
		_, _ = fmt.Fprintln(w, "No conversations.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tRESORT\tUNREAD\tLAST\tPREVIEW")
	for _, c := range convs {
		name := c.ResortName
		if name == "" {
			name = c.ResortID
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", c.ID, name, c.Unread, formatTime(c.LastMessageAt), clip(c.Preview, 40))
	}
	_ = tw.Flush()
}

var messagesLimit int

var messagesCmd = &cobra.Command{
	Use:   "messages <conversation-id>",
	Short: "Show the latest messages of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			msgs, err := c.Messages(ctx, args[0], messagesLimit)
			if err != nil {
				return err
			}
			if msgs == nil {
				msgs = []api.Message{}
			}
			return out().emit(msgs, func(w io.Writer) {
				if len(msgs) == 0 {
					_, _ = fmt.Fprintln(w, "No messages.")
					return
				}
				for _, m := range msgs {
					_, _ = fmt.Fprintf(w, "%s  %-8s  %s\n", formatTime(m.Timestamp), m.Sender, m.Text)
				}
			})
		})
	},
}

func init() {
	messagesCmd.Flags().IntVarP(&messagesLimit, "limit", "n", 0, "number of messages (0 = daemon default)")
}

func formatTime(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}

// clip shortens s to n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
