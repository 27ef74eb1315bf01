// Package note stores notes made of ordered text and image blocks.
package note

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/kalambet/ainoter/internal/imagestore"
	"github.com/kalambet/ainoter/internal/storage"
	"github.com/kalambet/ainoter/internal/validation"
)

// Store is the subset of the persistence gateway used by Manager.
type Store interface {
	Insert(ctx context.Context, t storage.Table, fields storage.Fields) (int64, error)
	Update(ctx context.Context, t storage.Table, id, ownerID int64, fields storage.Fields) error
	Delete(ctx context.Context, t storage.Table, id, ownerID int64) error
	Get(ctx context.Context, dest any, t storage.Table, id, ownerID int64) error
	Select(ctx context.Context, dest any, t storage.Table, f storage.Filter, orderBy ...storage.Order) error
}

// Images copies image files into the managed directory.
type Images interface {
	Import(src string) (string, error)
	Managed(path string) bool
}

type Note struct {
	ID        int64
	AccountID int64
	Title     string
	Blocks    []Block
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is a list entry.
type Summary struct {
	ID        int64
	Title     string
	CreatedAt time.Time
}

// Draft is an edited note about to be saved. ID 0 creates a new note.
// Image blocks may reference any readable file; files outside the managed
// directory are copied in on save.
type Draft struct {
	ID     int64
	Title  string
	Blocks []Block
}

type Manager struct {
	store  Store
	images Images
	pages  func(path string) ([]string, error)
	now    func() time.Time
	logger *slog.Logger
}

func NewManager(store Store, images Images) *Manager {
	return &Manager{
		store:  store,
		images: images,
		pages:  pdfPages,
		now:    time.Now,
		logger: slog.Default(),
	}
}

type draftInput struct {
	Title string `validate:"max=200"`
}

// Save inserts or fully replaces a note owned by accountID. Text blocks are
// trimmed and empty ones dropped; image sources that no longer exist are
// skipped. A failed image copy aborts the save before anything is written.
func (m *Manager) Save(ctx context.Context, accountID int64, d Draft) (Note, error) {
	title := strings.TrimSpace(d.Title)
	if err := validation.Struct(draftInput{Title: title}); err != nil {
		return Note{}, err
	}

	blocks, err := m.normalize(d.Blocks)
	if err != nil {
		return Note{}, err
	}
	if title == "" && len(blocks) == 0 {
		return Note{}, validation.New("content", "note is empty")
	}

	content, err := encodeBlocks(blocks)
	if err != nil {
		return Note{}, err
	}

	now := m.now().UTC().Truncate(time.Second)
	n := Note{ID: d.ID, AccountID: accountID, Title: title, Blocks: blocks, UpdatedAt: now}

	if d.ID == 0 {
		id, err := m.store.Insert(ctx, storage.Notes, storage.Fields{
			"account_id": accountID,
			"title":      title,
			"content":    content,
			"created_at": storage.FormatTimestamp(now),
			"updated_at": storage.FormatTimestamp(now),
		})
		if err != nil {
			return Note{}, fmt.Errorf("creating note: %w", err)
		}
		n.ID = id
		n.CreatedAt = now
		return n, nil
	}

	err = m.store.Update(ctx, storage.Notes, d.ID, accountID, storage.Fields{
		"title":      title,
		"content":    content,
		"updated_at": storage.FormatTimestamp(now),
	})
	if err != nil {
		return Note{}, fmt.Errorf("updating note %d: %w", d.ID, err)
	}
	return m.Load(ctx, accountID, d.ID)
}

func (m *Manager) normalize(in []Block) ([]Block, error) {
	out := make([]Block, 0, len(in))
	for _, b := range in {
		switch b.Kind() {
		case KindText:
			if body := strings.TrimSpace(b.Body()); body != "" {
				out = append(out, Text(body))
			}
		case KindImage:
			p := b.Path()
			if m.images.Managed(p) {
				out = append(out, Image(p))
				continue
			}
			rel, err := m.images.Import(p)
			if errors.Is(err, fs.ErrNotExist) {
				m.logger.Warn("skipping missing image", "path", p)
				continue
			}
			if err != nil {
				return nil, imageError(err)
			}
			out = append(out, Image(rel))
		}
	}
	return out, nil
}

// ImageError reports a failed image copy; the note was not saved.
type ImageError struct {
	Err error
}

func (e *ImageError) Error() string {
	switch {
	case errors.Is(e.Err, imagestore.ErrPermission):
		return "could not save image: permission denied"
	case errors.Is(e.Err, imagestore.ErrNoSpace):
		return "could not save image: not enough disk space"
	}
	return "could not save image: " + e.Err.Error()
}

func (e *ImageError) Unwrap() error { return e.Err }

func imageError(err error) error {
	return &ImageError{Err: err}
}

// Load returns the note with id if it belongs to accountID.
func (m *Manager) Load(ctx context.Context, accountID, id int64) (Note, error) {
	var row storage.NoteRow
	if err := m.store.Get(ctx, &row, storage.Notes, id, accountID); err != nil {
		return Note{}, fmt.Errorf("loading note %d: %w", id, err)
	}
	return m.fromRow(row), nil
}

func (m *Manager) Delete(ctx context.Context, accountID, id int64) error {
	if err := m.store.Delete(ctx, storage.Notes, id, accountID); err != nil {
		return fmt.Errorf("deleting note %d: %w", id, err)
	}
	return nil
}

// List returns the account's notes, newest first.
func (m *Manager) List(ctx context.Context, accountID int64) ([]Summary, error) {
	var rows []storage.NoteRow
	err := m.store.Select(ctx, &rows, storage.Notes, storage.Filter{OwnerID: accountID},
		storage.Order{Column: "created_at", Desc: true}, storage.Order{Column: "id", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	out := make([]Summary, len(rows))
	for i, r := range rows {
		created, _ := storage.ParseTimestamp(r.CreatedAt)
		out[i] = Summary{ID: r.ID, Title: r.Title, CreatedAt: created}
	}
	return out, nil
}

// ImportPDF creates a note titled after the file with one text block per
// non-empty page.
func (m *Manager) ImportPDF(ctx context.Context, accountID int64, path string) (Note, error) {
	pages, err := m.pages(path)
	if err != nil {
		return Note{}, fmt.Errorf("reading pdf %s: %w", path, err)
	}
	blocks := make([]Block, 0, len(pages))
	for _, p := range pages {
		blocks = append(blocks, Text(p))
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return m.Save(ctx, accountID, Draft{Title: title, Blocks: blocks})
}

func (m *Manager) fromRow(r storage.NoteRow) Note {
	created, _ := storage.ParseTimestamp(r.CreatedAt)
	updated, _ := storage.ParseTimestamp(r.UpdatedAt)
	return Note{
		ID:        r.ID,
		AccountID: r.AccountID,
		Title:     r.Title,
		Blocks:    decodeBlocks(r.Content, m.logger.With("note_id", r.ID)),
		CreatedAt: created,
		UpdatedAt: updated,
	}
}
