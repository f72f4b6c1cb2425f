package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// FavoriteRequest is the body for /favorites/add and /favorites/remove.
type FavoriteRequest struct {
	ResortID string `json:"resortId"`
}

// FavoriteResponse is returned by the favorite mutation endpoints.
type FavoriteResponse struct {
	Message    string   `json:"message"`
	Favorites  []string `json:"favorites,omitempty"`
	IsFavorite *bool    `json:"isFavorite,omitempty"`
}

// FavoriteResort is one entry of a user's favorites. The API returns either
// bare resort ids or populated resort documents.
type FavoriteResort struct {
	ID   string `json:"_id"`
	Name string `json:"resort_name,omitempty"`
}

func (f *FavoriteResort) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &f.ID)
	}
	type plain FavoriteResort
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*f = FavoriteResort(p)
	return nil
}

// AddFavorite marks a resort as a favorite of the authenticated user.
func (c *Client) AddFavorite(ctx context.Context, resortID string) (*FavoriteResponse, error) {
	var resp FavoriteResponse
	if err := c.post(ctx, "/favorites/add", &FavoriteRequest{ResortID: resortID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RemoveFavorite removes a resort from the authenticated user's favorites.
func (c *Client) RemoveFavorite(ctx context.Context, resortID string) (*FavoriteResponse, error) {
	var resp FavoriteResponse
	if err := c.post(ctx, "/favorites/remove", &FavoriteRequest{ResortID: resortID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsFavorite reports whether the resort is in the authenticated user's favorites.
func (c *Client) IsFavorite(ctx context.Context, resortID string) (bool, error) {
	var resp struct {
		IsFavorite bool `json:"isFavorite"`
	}
	if err := c.get(ctx, "/favorites/isFavorite/"+pathEscape(resortID), &resp); err != nil {
		return false, err
	}
	return resp.IsFavorite, nil
}

// UserFavorites lists the favorites of a user.
func (c *Client) UserFavorites(ctx context.Context, userID string) ([]FavoriteResort, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	var raw json.RawMessage
	if err := c.get(ctx, "/favorites/user/"+pathEscape(userID), &raw); err != nil {
		return nil, err
	}

	var list []FavoriteResort
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	// Some deployments wrap the list: {"favorites": [...]}.
	var wrapped struct {
		Favorites []FavoriteResort `json:"favorites"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding favorites: %w", err)
	}
	return wrapped.Favorites, nil
}
