package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Table names a record kind held by the store.
type Table string

const (
	Accounts  Table = "accounts"
	Notes     Table = "notes"
	Reminders Table = "reminders"
	Exchanges Table = "ai_exchanges"
)

// ownerColumn is the foreign key every owned table carries.
const ownerColumn = "account_id"

type tableSpec struct {
	owned   bool
	columns []string // id first
}

var tables = map[Table]tableSpec{
	Accounts:  {owned: false, columns: []string{"id", "username", "password_hash", "created_at"}},
	Notes:     {owned: true, columns: []string{"id", "account_id", "title", "content", "created_at", "updated_at"}},
	Reminders: {owned: true, columns: []string{"id", "account_id", "text", "due_at", "created_at"}},
	Exchanges: {owned: true, columns: []string{"id", "account_id", "prompt", "response", "created_at"}},
}

func lookup(t Table) (tableSpec, error) {
	spec, ok := tables[t]
	if !ok {
		return tableSpec{}, fmt.Errorf("unknown table %q", t)
	}
	return spec, nil
}

func (ts tableSpec) has(column string) bool {
	for _, c := range ts.columns {
		if c == column {
			return true
		}
	}
	return false
}

// Fields maps column names to values for Insert and Update.
type Fields map[string]any

// Op is a comparison operator usable in a Cond.
type Op string

const (
	OpEq  Op = "="
	OpLT  Op = "<"
	OpLTE Op = "<="
	OpGT  Op = ">"
	OpGTE Op = ">="
)

// Cond is a single column comparison. Conditions in a Filter are ANDed.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

// Filter restricts Select. OwnerID is mandatory for owned tables.
type Filter struct {
	OwnerID int64
	Conds   []Cond
}

// Order is one ORDER BY term.
type Order struct {
	Column string
	Desc   bool
}

// Insert adds a row and returns its autoincrement id.
func (s *Store) Insert(ctx context.Context, t Table, fields Fields) (int64, error) {
	spec, err := lookup(t)
	if err != nil {
		return 0, err
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("insert into %s: no fields", t)
	}
	if spec.owned {
		if owner, _ := fields[ownerColumn].(int64); owner <= 0 {
			return 0, fmt.Errorf("insert into %s: %s is required", t, ownerColumn)
		}
	}

	cols, args, err := spec.bind(t, fields)
	if err != nil {
		return 0, err
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", t, strings.Join(cols, ", "), placeholders)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}

// Update changes the given columns of the row with id owned by ownerID.
// A missing row and an owner mismatch both yield ErrNotFound.
func (s *Store) Update(ctx context.Context, t Table, id, ownerID int64, fields Fields) error {
	spec, err := lookup(t)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("update %s: no fields", t)
	}
	if _, ok := fields["id"]; ok {
		return fmt.Errorf("update %s: id is immutable", t)
	}
	if _, ok := fields[ownerColumn]; ok {
		return fmt.Errorf("update %s: %s is immutable", t, ownerColumn)
	}

	cols, args, err := spec.bind(t, fields)
	if err != nil {
		return err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = c + " = ?"
	}
	where, whereArgs := spec.byID(id, ownerID)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", t, strings.Join(sets, ", "), where)

	res, err := s.db.ExecContext(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return classify(err)
	}
	return affected(res)
}

// Delete removes the row with id owned by ownerID.
func (s *Store) Delete(ctx context.Context, t Table, id, ownerID int64) error {
	spec, err := lookup(t)
	if err != nil {
		return err
	}
	where, args := spec.byID(id, ownerID)
	res, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s", t, where), args...)
	if err != nil {
		return classify(err)
	}
	return affected(res)
}

// Get loads one row into dest (a pointer to the matching *Row struct).
// For owned tables the row must belong to ownerID.
func (s *Store) Get(ctx context.Context, dest any, t Table, id, ownerID int64) error {
	spec, err := lookup(t)
	if err != nil {
		return err
	}
	where, args := spec.byID(id, ownerID)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(spec.columns, ", "), t, where)
	if err := s.db.GetContext(ctx, dest, query, args...); err != nil {
		return classify(err)
	}
	return nil
}

// Select loads all rows matching f into dest (a pointer to a slice of *Row structs).
func (s *Store) Select(ctx context.Context, dest any, t Table, f Filter, orderBy ...Order) error {
	spec, err := lookup(t)
	if err != nil {
		return err
	}

	var (
		clauses []string
		args    []any
	)
	if spec.owned {
		if f.OwnerID <= 0 {
			return fmt.Errorf("select from %s: owner id is required", t)
		}
		clauses = append(clauses, ownerColumn+" = ?")
		args = append(args, f.OwnerID)
	}
	for _, c := range f.Conds {
		if !spec.has(c.Column) {
			return fmt.Errorf("select from %s: unknown column %q", t, c.Column)
		}
		if !validOp(c.Op) {
			return fmt.Errorf("select from %s: unsupported operator %q", t, c.Op)
		}
		clauses = append(clauses, fmt.Sprintf("%s %s ?", c.Column, c.Op))
		args = append(args, c.Value)
	}

	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(spec.columns, ", "), t)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if len(orderBy) > 0 {
		terms := make([]string, len(orderBy))
		for i, o := range orderBy {
			if !spec.has(o.Column) {
				return fmt.Errorf("select from %s: unknown order column %q", t, o.Column)
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = o.Column + " " + dir
		}
		query += " ORDER BY " + strings.Join(terms, ", ")
	}

	if err := s.db.SelectContext(ctx, dest, query, args...); err != nil {
		return classify(err)
	}
	return nil
}

// bind returns the field columns in a stable order with their values.
func (ts tableSpec) bind(t Table, fields Fields) ([]string, []any, error) {
	cols := make([]string, 0, len(fields))
	for c := range fields {
		if !ts.has(c) {
			return nil, nil, fmt.Errorf("%s: unknown column %q", t, c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)
	args := make([]any, len(cols))
	for i, c := range cols {
		args[i] = fields[c]
	}
	return cols, args, nil
}

func (ts tableSpec) byID(id, ownerID int64) (string, []any) {
	if ts.owned {
		return "id = ? AND " + ownerColumn + " = ?", []any{id, ownerID}
	}
	return "id = ?", []any{id}
}

func validOp(op Op) bool {
	switch op {
	case OpEq, OpLT, OpLTE, OpGT, OpGTE:
		return true
	}
	return false
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// classify maps driver errors onto the package sentinels.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: owner account does not exist", ErrNotFound)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
