package records

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	id                uuid PRIMARY KEY,
	text              text NOT NULL,
	laugh             bigint NOT NULL DEFAULT 0,
	created_at        timestamptz NOT NULL,
	payment_signature text NOT NULL DEFAULT ''
)`

// PostgresStore persists records in Postgres.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database, verifies the connection and
// ensures the records table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(ctx context.Context, text, paymentSignature string) (*Record, error) {
	rec := &Record{
		ID:               uuid.NewString(),
		Text:             text,
		CreatedAt:        time.Now().UTC(),
		PaymentSignature: paymentSignature,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (id, text, laugh, created_at, payment_signature) VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.Text, rec.Laugh, rec.CreatedAt, rec.PaymentSignature)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*Record, error) {
	out := []*Record{}
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, text, laugh, created_at, payment_signature FROM records ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) AddLaugh(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := s.db.GetContext(ctx, &rec,
		`UPDATE records SET laugh = laugh + 1 WHERE id = $1 RETURNING id, text, laugh, created_at, payment_signature`,
		id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

var _ Store = (*PostgresStore)(nil)
