package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/memoraio/memora/internal/models"
)

// Users manages user lifecycle.
type Users struct {
	store  UserStore
	logger *slog.Logger
}

// NewUsers creates a user manager.
func NewUsers(store UserStore, logger *slog.Logger) *Users {
	if logger == nil {
		logger = slog.Default()
	}
	return &Users{store: store, logger: logger}
}

// GetOrCreate returns the user with the given ID, creating it if
// absent. A nil or empty id allocates a fresh UUID. Existing users get
// their last interaction timestamp refreshed; created reports whether
// the record is new.
func (u *Users) GetOrCreate(ctx context.Context, id *string, displayName *string) (user *models.User, created bool, err error) {
	userID := ""
	if id != nil {
		userID = strings.TrimSpace(*id)
	}
	if userID == "" {
		userID = uuid.NewString()
	}

	existing, err := u.store.GetUser(ctx, userID)
	if err != nil {
		return nil, false, fmt.Errorf("get user: %w", err)
	}
	if existing != nil {
		if err := u.store.TouchUser(ctx, userID); err != nil {
			u.logger.Warn("touch user failed", "user", userID, "error", err)
		}
		return existing, false, nil
	}

	user, err = u.store.CreateUser(ctx, userID, displayName)
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	u.logger.Info("user created", "user", userID)
	return user, true, nil
}

// Get returns the user or ErrNotFound.
func (u *Users) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := u.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return user, nil
}

// Delete removes the user and all of their memories. Returns the
// number of memory records removed alongside the user.
func (u *Users) Delete(ctx context.Context, id string) (int, error) {
	user, err := u.store.GetUser(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return 0, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	removed, err := u.store.DeleteUserData(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("delete user data: %w", err)
	}
	u.logger.Info("user deleted", "user", id, "memories_removed", removed)
	return removed, nil
}
