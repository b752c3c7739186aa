package db

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealdb.go"

	"github.com/memoraio/memora/internal/models"
)

// CreateUser creates a user record with the given ID.
// Racing creates of the same ID surface as ErrConflict.
func (c *Client) CreateUser(ctx context.Context, id string, name *string) (*models.User, error) {
	results, err := surrealdb.Query[[]models.User](ctx, c.db, `
		CREATE type::record("user", $id) SET display_name = $name RETURN AFTER
	`, map[string]any{"id": id, "name": name})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", wrapQueryError(err))
	}

	user := firstRecord(results)
	if user == nil {
		return nil, fmt.Errorf("create user: no result returned")
	}
	return user, nil
}

// GetUser retrieves a user by ID. Returns nil if not found.
func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	results, err := surrealdb.Query[[]models.User](ctx, c.db, `
		SELECT * FROM type::record("user", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return firstRecord(results), nil
}

// TouchUser updates the user's last interaction timestamp.
func (c *Client) TouchUser(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("user", $id) SET last_interaction = time::now()
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("touch user: %w", err)
	}
	return nil
}

// cascadeCounts reports how many records a user deletion removed per tier.
type cascadeCounts struct {
	STM  int `json:"stm"`
	LTM  int `json:"ltm"`
	User int `json:"user"`
}

// DeleteUserData removes a user and every memory the user owns, in one
// transaction: STM first, then LTM, then the user record itself.
// Returns the total number of memory records removed.
func (c *Client) DeleteUserData(ctx context.Context, id string) (int, error) {
	results, err := surrealdb.Query[cascadeCounts](ctx, c.db, `
		BEGIN TRANSACTION;
		LET $stm = (DELETE stm WHERE user = $id RETURN BEFORE);
		LET $ltm = (DELETE ltm WHERE user = $id RETURN BEFORE);
		LET $usr = (DELETE type::record("user", $id) RETURN BEFORE);
		RETURN { stm: array::len($stm), ltm: array::len($ltm), user: array::len($usr) };
		COMMIT TRANSACTION;
	`, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete user data: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	counts := (*results)[len(*results)-1].Result
	return counts.STM + counts.LTM, nil
}
