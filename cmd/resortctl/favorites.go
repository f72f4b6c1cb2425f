package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/resort/internal/api"
	"github.com/matheus3301/resort/internal/tui/client"
	"github.com/spf13/cobra"
)

const opPollInterval = 200 * time.Millisecond

var favoritesWait bool

var favoritesCmd = &cobra.Command{
	Use:     "favorites",
	Aliases: []string{"fav"},
	Short:   "Manage favorite resorts",
}

func queueCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <resort-id>",
		Short: fmt.Sprintf("Queue a favorite %s", action),
		Long: fmt.Sprintf(`Queue a favorite %s. The daemon sends it in the background and
retries on failure; with --wait the command blocks until it settles.`, action),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout := callTimeout
			if favoritesWait {
				timeout = time.Minute
			}
			return withClientContext(context.Background(), timeout, func(ctx context.Context, c *client.Client) error {
				opID, err := c.QueueFavorite(ctx, args[0], action)
				if err != nil {
					return err
				}
				op := api.FavoriteOp{OpID: opID, ResortID: args[0], Action: action, Status: "queued"}
				if favoritesWait {
					if op, err = waitOp(ctx, c, opID); err != nil {
						return err
					}
				}
				return printOp(op)
			})
		},
	}
}

// waitOp polls an op until it is sent or failed.
func waitOp(ctx context.Context, c *client.Client, opID string) (api.FavoriteOp, error) {
	ticker := time.NewTicker(opPollInterval)
	defer ticker.Stop()
	for {
		op, err := c.FavoriteOp(ctx, opID)
		if err != nil {
			return api.FavoriteOp{}, err
		}
		if op.Status == "sent" || op.Status == "failed" {
			return op, nil
		}
		select {
		case <-ctx.Done():
			return op, fmt.Errorf("op %s still %s: %w", opID, op.Status, ctx.Err())
		case <-ticker.C:
		}
	}
}

func printOp(op api.FavoriteOp) error {
	return out().emit(op, func(w io.Writer) {
		_, _ = fmt.Fprintf(w, "%s %s: %s (op %s)\n", op.Action, op.ResortID, op.Status, op.OpID)
		if op.Error != "" {
			_, _ = fmt.Fprintf(w, "error: %s\n", op.Error)
		}
	})
}

var favoritesOpCmd = &cobra.Command{
	Use:   "op <op-id>",
	Short: "Show a queued favorite operation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			op, err := c.FavoriteOp(ctx, args[0])
			if err != nil {
				return err
			}
			return printOp(op)
		})
	},
}

var favoritesCheckCmd = &cobra.Command{
	Use:   "check <resort-id>",
	Short: "Report whether a resort is a favorite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			fav, err := c.IsFavorite(ctx, args[0])
			if err != nil {
				return err
			}
			res := struct {
				ResortID string `json:"resort_id" yaml:"resort_id"`
				Favorite bool   `json:"favorite" yaml:"favorite"`
			}{args[0], fav}
			return out().emit(res, func(w io.Writer) {
				_, _ = fmt.Fprintln(w, fav)
			})
		})
	},
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the user's favorite resorts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *client.Client) error {
			favs, err := c.Favorites(ctx)
			if err != nil {
				return err
			}
			if favs == nil {
				favs = []api.Favorite{}
			}
			return out().emit(favs, func(w io.Writer) {
				if len(favs) == 0 {
					_, _ = fmt.Fprintln(w, "No favorites.")
					return
				}
				for _, f := range favs {
					if f.Name != "" {
						_, _ = fmt.Fprintf(w, "%s  %s\n", f.ResortID, f.Name)
					} else {
						_, _ = fmt.Fprintln(w, f.ResortID)
					}
				}
			})
		})
	},
}

func init() {
	add, remove := queueCmd("add"), queueCmd("remove")
	for _, c := range []*cobra.Command{add, remove} {
		c.Flags().BoolVarP(&favoritesWait, "wait", "w", false, "wait until the operation is sent or failed")
	}
	favoritesCmd.AddCommand(add, remove, favoritesOpCmd, favoritesCheckCmd, favoritesListCmd)
}
