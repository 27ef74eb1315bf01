// Package account registers and authenticates the local users that own
// notes, reminders and AI exchanges.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kalambet/ainoter/internal/storage"
	"github.com/kalambet/ainoter/internal/validation"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Store is the subset of the persistence gateway used by Manager.
type Store interface {
	Insert(ctx context.Context, t storage.Table, fields storage.Fields) (int64, error)
	Select(ctx context.Context, dest any, t storage.Table, f storage.Filter, orderBy ...storage.Order) error
}

type Account struct {
	ID        int64
	Username  string
	CreatedAt time.Time
}

type Manager struct {
	store  Store
	cost   int
	logger *slog.Logger
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, cost: bcrypt.DefaultCost, logger: slog.Default()}
}

// NewManagerWithCost lowers the bcrypt cost (for testing).
func NewManagerWithCost(store Store, cost int) *Manager {
	m := NewManager(store)
	m.cost = cost
	return m
}

type credentials struct {
	Username string `validate:"notblank,max=64"`
	Password string `validate:"required"`
}

func (m *Manager) Register(ctx context.Context, username, password string) (Account, error) {
	in := credentials{Username: strings.TrimSpace(username), Password: password}
	if err := validation.Struct(in); err != nil {
		return Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), m.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	id, err := m.store.Insert(ctx, storage.Accounts, storage.Fields{
		"username":      in.Username,
		"password_hash": string(hash),
		"created_at":    storage.FormatTimestamp(now),
	})
	if errors.Is(err, storage.ErrConflict) {
		return Account{}, ErrUsernameTaken
	}
	if err != nil {
		return Account{}, fmt.Errorf("creating account: %w", err)
	}

	m.logger.Info("account registered", "account_id", id)
	return Account{ID: id, Username: in.Username, CreatedAt: now.Truncate(time.Second)}, nil
}

// Login verifies the password. Unknown users and wrong passwords produce
// the same ErrInvalidCredentials.
func (m *Manager) Login(ctx context.Context, username, password string) (Account, error) {
	row, err := m.byUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, storage.ErrNotFound) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return Account{}, ErrInvalidCredentials
	}
	return fromRow(row), nil
}

func (m *Manager) byUsername(ctx context.Context, username string) (storage.AccountRow, error) {
	var rows []storage.AccountRow
	err := m.store.Select(ctx, &rows, storage.Accounts, storage.Filter{
		Conds: []storage.Cond{{Column: "username", Op: storage.OpEq, Value: username}},
	})
	if err != nil {
		return storage.AccountRow{}, fmt.Errorf("looking up account: %w", err)
	}
	if len(rows) == 0 {
		return storage.AccountRow{}, storage.ErrNotFound
	}
	return rows[0], nil
}

func fromRow(row storage.AccountRow) Account {
	created, _ := storage.ParseTimestamp(row.CreatedAt)
	return Account{ID: row.ID, Username: row.Username, CreatedAt: created}
}
