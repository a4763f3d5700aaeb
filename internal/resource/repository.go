// AngelaMos | 2026
// repository.go

package resource

import (
	"context"
	"fmt"

	"github.com/relaychat/admin-api/internal/cleanup"
	"github.com/relaychat/admin-api/internal/core"
)

// Store removes every record of one dependent resource family owned by a
// user. Blob contents behind file or credential rows live in external
// collaborators; only the records are owned here.
type Store interface {
	Name() string
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}

type tableStore struct {
	db     core.DBTX
	name   string
	table  string
	column string
}

func (s *tableStore) Name() string {
	return s.name
}

func (s *tableStore) DeleteAllForUser(
	ctx context.Context,
	userID string,
) (int64, error) {
	query := fmt.Sprintf(
		"DELETE FROM %s WHERE %s = $1",
		s.table,
		s.column,
	)

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", s.name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", s.name, err)
	}

	return rows, nil
}

func NewMessageStore(db core.DBTX) Store {
	return &tableStore{db: db, name: "messages", table: "messages", column: "user_id"}
}

func NewConversationStore(db core.DBTX) Store {
	return &tableStore{db: db, name: "conversations", table: "conversations", column: "user_id"}
}

func NewPresetStore(db core.DBTX) Store {
	return &tableStore{db: db, name: "presets", table: "presets", column: "user_id"}
}

func NewTransactionStore(db core.DBTX) Store {
	return &tableStore{db: db, name: "transactions", table: "transactions", column: "user_id"}
}

func NewBalanceStore(db core.DBTX) Store {
	return &tableStore{db: db, name: "balances", table: "balances", column: "user_id"}
}

func NewPluginCredentialStore(db core.DBTX) Store {
	return &tableStore{db: db, name: "plugin_credentials", table: "plugin_credentials", column: "user_id"}
}

func NewSharedLinkStore(db core.DBTX) Store {
	return &tableStore{db: db, name: "shared_links", table: "shared_links", column: "user_id"}
}

func NewFileStore(db core.DBTX) Store {
	return &tableStore{db: db, name: "files", table: "files", column: "user_id"}
}

func NewToolCallStore(db core.DBTX) Store {
	return &tableStore{db: db, name: "tool_calls", table: "tool_calls", column: "user_id"}
}

// AllStores returns one store per dependent resource family removed when a
// user is deleted.
func AllStores(db core.DBTX) []Store {
	return []Store{
		NewMessageStore(db),
		NewConversationStore(db),
		NewPresetStore(db),
		NewTransactionStore(db),
		NewBalanceStore(db),
		NewPluginCredentialStore(db),
		NewSharedLinkStore(db),
		NewFileStore(db),
		NewToolCallStore(db),
	}
}

// Steps adapts stores into cascade steps. Each step is independently
// best-effort; the cascade isolates failures.
func Steps(stores ...Store) []cleanup.Step {
	steps := make([]cleanup.Step, 0, len(stores))
	for _, store := range stores {
		steps = append(steps, cleanup.Step{
			Name: store.Name(),
			Fn: func(ctx context.Context, userID string) error {
				_, err := store.DeleteAllForUser(ctx, userID)
				return err
			},
		})
	}
	return steps
}
