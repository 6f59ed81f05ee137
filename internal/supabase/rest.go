package supabase

import (
	"context"
	"encoding/json"
	"fmt"
)

// UpdateByID patches the row of table whose id equals id and returns the
// updated rows. A patch that matched nothing returns ErrNotFound.
func (c *Client) UpdateByID(ctx context.Context, table, id string, patch any) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, _, err := c.rest.From(table).
		Update(patch, "representation", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}
