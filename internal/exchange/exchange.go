// Package exchange records prompts sent to the AI endpoint and their
// responses. An empty response means the request is still pending.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/kalambet/ainoter/internal/storage"
)

// Store is the subset of the persistence gateway used by Manager.
type Store interface {
	Insert(ctx context.Context, t storage.Table, fields storage.Fields) (int64, error)
	Update(ctx context.Context, t storage.Table, id, ownerID int64, fields storage.Fields) error
	Delete(ctx context.Context, t storage.Table, id, ownerID int64) error
	Get(ctx context.Context, dest any, t storage.Table, id, ownerID int64) error
	Select(ctx context.Context, dest any, t storage.Table, f storage.Filter, orderBy ...storage.Order) error
}

type Exchange struct {
	ID        int64
	AccountID int64
	Prompt    string
	Response  string
	CreatedAt time.Time
}

// Pending reports whether no response has been stored yet.
func (e Exchange) Pending() bool { return e.Response == "" }

type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

func (m *Manager) create(ctx context.Context, accountID int64, prompt string) (int64, error) {
	id, err := m.store.Insert(ctx, storage.Exchanges, storage.Fields{
		"account_id": accountID,
		"prompt":     prompt,
		"response":   "",
		"created_at": storage.FormatTimestamp(m.now()),
	})
	if err != nil {
		return 0, fmt.Errorf("creating exchange: %w", err)
	}
	return id, nil
}

func (m *Manager) Load(ctx context.Context, accountID, id int64) (Exchange, error) {
	var row storage.ExchangeRow
	if err := m.store.Get(ctx, &row, storage.Exchanges, id, accountID); err != nil {
		return Exchange{}, fmt.Errorf("loading exchange %d: %w", id, err)
	}
	return fromRow(row), nil
}

// List returns the account's exchanges, newest first.
func (m *Manager) List(ctx context.Context, accountID int64) ([]Exchange, error) {
	var rows []storage.ExchangeRow
	err := m.store.Select(ctx, &rows, storage.Exchanges, storage.Filter{OwnerID: accountID},
		storage.Order{Column: "created_at", Desc: true}, storage.Order{Column: "id", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("listing exchanges: %w", err)
	}
	out := make([]Exchange, len(rows))
	for i, r := range rows {
		out[i] = fromRow(r)
	}
	return out, nil
}

func (m *Manager) Delete(ctx context.Context, accountID, id int64) error {
	if err := m.store.Delete(ctx, storage.Exchanges, id, accountID); err != nil {
		return fmt.Errorf("deleting exchange %d: %w", id, err)
	}
	return nil
}

func (m *Manager) SetResponse(ctx context.Context, accountID, id int64, response string) error {
	err := m.store.Update(ctx, storage.Exchanges, id, accountID, storage.Fields{"response": response})
	if err != nil {
		return fmt.Errorf("storing response for exchange %d: %w", id, err)
	}
	return nil
}

func fromRow(r storage.ExchangeRow) Exchange {
	created, _ := storage.ParseTimestamp(r.CreatedAt)
	return Exchange{ID: r.ID, AccountID: r.AccountID, Prompt: r.Prompt, Response: r.Response, CreatedAt: created}
}
