package main

import (
	"context"
	"fmt"
	"io"

	"github.com/matheus3301/resort/internal/tui/client"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			return out().emit(st, func(w io.Writer) {
				user := "-"
				if st.UserID != "" {
					user = fmt.Sprintf("%s (%s)", st.UserID, st.Role)
				}
				lastRefresh := st.LastRefresh
				if lastRefresh == "" {
					lastRefresh = "-"
				}
				_, _ = fmt.Fprintf(w, "Session:       %s\n", st.Session)
				_, _ = fmt.Fprintf(w, "State:         %s\n", st.State)
				_, _ = fmt.Fprintf(w, "User:          %s\n", user)
				_, _ = fmt.Fprintf(w, "Unread:        %d\n", st.Unread)
				_, _ = fmt.Fprintf(w, "Conversations: %d\n", st.Conversations)
				_, _ = fmt.Fprintf(w, "Messages:      %d\n", st.Messages)
				_, _ = fmt.Fprintf(w, "Last refresh:  %s\n", lastRefresh)
				_, _ = fmt.Fprintf(w, "Session age:   %s\n", formatMillis(st.SessionMs))
				_, _ = fmt.Fprintf(w, "Uptime:        %s\n", formatMillis(st.UptimeMs))
			})
		})
	},
}

var (
	loginUser  string
	loginRole  string
	loginToken string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Start a session as a user",
	Long: `Start a daemon session. Either --user (with --role) or --token is
required; a token's id and role claims win over the flags.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginUser == "" && loginToken == "" {
			return fmt.Errorf("either --user or --token is required")
		}
		return withClient(func(ctx context.Context, c *client.Client) error {
			if err := c.Login(ctx, loginUser, loginRole, loginToken); err != nil {
				return err
			}
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			return out().emit(st, func(w io.Writer) {
				_, _ = fmt.Fprintf(w, "Logged in as %s (%s), state %s\n", st.UserID, st.Role, st.State)
			})
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			if err := c.Logout(ctx); err != nil {
				return err
			}
			return out().emit(map[string]bool{"logged_out": true}, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, "Logged out")
			})
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginUser, "user", "", "user id")
	loginCmd.Flags().StringVar(&loginRole, "role", "customer", "role: customer or owner")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "bearer token (JWT) naming the user")
}
