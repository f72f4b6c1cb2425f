// Package client is the daemon's gRPC client, shared by resorttui and resortctl.
package client

import (
	"context"
	"fmt"

	"github.com/matheus3301/resort/internal/api"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client wraps a gRPC connection to the daemon.
type Client struct {
	conn *grpc.ClientConn
}

// New dials the daemon's Unix domain socket. The connection is lazy: errors
// show up on the first call.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Status(ctx context.Context) (api.Status, error) {
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, api.MethodGetStatus, &emptypb.Empty{}, out); err != nil {
		return api.Status{}, err
	}
	return api.StatusFromStruct(out), nil
}

// Login starts a session as userID/role, or as the user named by token.
func (c *Client) Login(ctx context.Context, userID, role, token string) error {
	req, err := structpb.NewStruct(map[string]any{"user_id": userID, "role": role, "token": token})
	if err != nil {
		return err
	}
	return c.conn.Invoke(ctx, api.MethodLogin, req, &emptypb.Empty{})
}

func (c *Client) Logout(ctx context.Context) error {
	return c.conn.Invoke(ctx, api.MethodLogout, &emptypb.Empty{}, &emptypb.Empty{})
}

func (c *Client) UnreadCount(ctx context.Context) (int64, error) {
	return c.int64Call(ctx, api.MethodGetUnreadCount, &emptypb.Empty{})
}

// SetUnreadCount overwrites the badge and returns the stored value.
func (c *Client) SetUnreadCount(ctx context.Context, n int64) (int64, error) {
	return c.int64Call(ctx, api.MethodSetUnreadCount, wrapperspb.Int64(n))
}

// AdjustUnreadCount adds delta to the badge and returns the stored value.
func (c *Client) AdjustUnreadCount(ctx context.Context, delta int64) (int64, error) {
	return c.int64Call(ctx, api.MethodAdjustUnreadCount, wrapperspb.Int64(delta))
}

// RefreshUnread waits for a full refresh and returns the resulting count.
func (c *Client) RefreshUnread(ctx context.Context) (int64, error) {
	return c.int64Call(ctx, api.MethodRefreshUnread, &emptypb.Empty{})
}

func (c *Client) int64Call(ctx context.Context, method string, in any) (int64, error) {
	out := &wrapperspb.Int64Value{}
	if err := c.conn.Invoke(ctx, method, in, out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// WatchUnreadCount calls fn with the current count and then with every
// change until ctx ends or the stream fails.
func (c *Client) WatchUnreadCount(ctx context.Context, fn func(int64)) error {
	stream, err := c.conn.NewStream(ctx, api.WatchStreamDesc, api.MethodWatchUnreadCount)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		out := &wrapperspb.Int64Value{}
		if err := stream.RecvMsg(out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fn(out.GetValue())
	}
}

func (c *Client) Conversations(ctx context.Context) ([]api.Conversation, error) {
	out := &structpb.ListValue{}
	if err := c.conn.Invoke(ctx, api.MethodListConversations, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return api.ConversationsFromList(out), nil
}

// Messages returns up to limit of the latest messages, oldest first. A zero
// limit uses the daemon's default.
func (c *Client) Messages(ctx context.Context, conversationID string, limit int) ([]api.Message, error) {
	req, err := structpb.NewStruct(map[string]any{"conversation_id": conversationID, "limit": limit})
	if err != nil {
		return nil, err
	}
	out := &structpb.ListValue{}
	if err := c.conn.Invoke(ctx, api.MethodListMessages, req, out); err != nil {
		return nil, err
	}
	return api.MessagesFromList(out), nil
}

// QueueFavorite queues an add or remove and returns the op id.
func (c *Client) QueueFavorite(ctx context.Context, resortID, action string) (string, error) {
	req, err := structpb.NewStruct(map[string]any{"resort_id": resortID, "action": action})
	if err != nil {
		return "", err
	}
	out := &wrapperspb.StringValue{}
	if err := c.conn.Invoke(ctx, api.MethodQueueFavorite, req, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *Client) FavoriteOp(ctx context.Context, opID string) (api.FavoriteOp, error) {
	out := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, api.MethodGetFavoriteOp, wrapperspb.String(opID), out); err != nil {
		return api.FavoriteOp{}, err
	}
	return api.FavoriteOpFromStruct(out), nil
}

func (c *Client) IsFavorite(ctx context.Context, resortID string) (bool, error) {
	out := &wrapperspb.BoolValue{}
	if err := c.conn.Invoke(ctx, api.MethodIsFavorite, wrapperspb.String(resortID), out); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func (c *Client) Favorites(ctx context.Context) ([]api.Favorite, error) {
	out := &structpb.ListValue{}
	if err := c.conn.Invoke(ctx, api.MethodListFavorites, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return api.FavoritesFromList(out), nil
}
