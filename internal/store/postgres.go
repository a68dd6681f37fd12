// Package store persists validated contacts.
//
// Postgres is the production store, backed by a pgx pool. Memory is used
// for dry runs and tests.
package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/contactload/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

// Postgres stores contacts in the contacts table.
type Postgres struct {
	db DBTX
}

// NewPostgres returns a store using db.
func NewPostgres(db DBTX) *Postgres {
	return &Postgres{db: db}
}

const (
	insertContact = `INSERT INTO contacts (name, telephone, email)
		 VALUES ($1, $2, $3)
		 RETURNING id`

	upsertContact = `INSERT INTO contacts (id, name, telephone, email)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name, telephone = EXCLUDED.telephone,
		     email = EXCLUDED.email, updated_at = NOW()
		 RETURNING id`

	listContacts = `SELECT id, name, telephone, email
		 FROM contacts
		 ORDER BY id
		 LIMIT $1 OFFSET $2`

	countContacts = `SELECT COUNT(*) FROM contacts`
)

// Upsert inserts c, or updates the row with c.ID when it is set, and writes
// the resulting ID back to c.
func (s *Postgres) Upsert(ctx context.Context, c *core.Contact) error {
	var row pgx.Row
	if c.ID == 0 {
		row = s.db.QueryRow(ctx, insertContact, c.Name, c.Phone, c.Email)
	} else {
		row = s.db.QueryRow(ctx, upsertContact, c.ID, c.Name, c.Phone, c.Email)
	}

	var id int64
	if err := row.Scan(&id); err != nil {
		return fmt.Errorf("upsert contact: %w", err)
	}
	c.ID = id
	return nil
}

// List returns stored contacts ordered by ID. A non-positive limit selects
// DefaultListLimit.
func (s *Postgres) List(ctx context.Context, limit, offset int) ([]core.Contact, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, listContacts, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []core.Contact{}
	for rows.Next() {
		var c core.Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// Count returns the number of stored contacts.
func (s *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, countContacts).Scan(&n); err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

// Migrate creates the contacts table if it does not exist.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
