package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

type ClaimRepository struct {
	db *sql.DB
}

func NewClaimRepository(db *sql.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ClaimRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent api startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS claims (
	id TEXT PRIMARY KEY,
	data JSONB NOT NULL,
	pdf_path TEXT NOT NULL,
	pdf_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claims_created_at ON claims(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// Create upserts the record. A second write for the same id replaces the payload
// and keeps the original created_at.
func (r *ClaimRepository) Create(ctx context.Context, rec *domain.ClaimRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO claims (id, data, pdf_path, pdf_hash, created_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE
SET data = EXCLUDED.data, pdf_path = EXCLUDED.pdf_path, pdf_hash = EXCLUDED.pdf_hash
`,
		rec.ID, []byte(rec.Data), rec.DocumentPath, rec.DocumentHash, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert claim: %w", err)
	}
	return nil
}

func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*domain.ClaimRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, data, pdf_path, pdf_hash, created_at
FROM claims
WHERE id = $1
`, id)

	rec, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrClaimNotFound, "get claim", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan claim: %w", err)
	}
	return rec, nil
}

func (r *ClaimRepository) GetDocumentPath(ctx context.Context, id string) (string, error) {
	var path string
	err := r.db.QueryRowContext(ctx, `SELECT pdf_path FROM claims WHERE id = $1`, id).Scan(&path)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.WrapError(domain.ErrClaimNotFound, "get document path", fmt.Errorf("id=%s", id))
		}
		return "", fmt.Errorf("scan document path: %w", err)
	}
	return path, nil
}

func (r *ClaimRepository) List(ctx context.Context, limit int) ([]domain.ClaimRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, data, pdf_path, pdf_hash, created_at
FROM claims
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ClaimRecord, 0, limit)
	for rows.Next() {
		rec, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return out, nil
}

func (r *ClaimRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return domain.WrapError(domain.ErrTemporary, "ping postgres", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*domain.ClaimRecord, error) {
	var rec domain.ClaimRecord
	var data []byte
	if err := row.Scan(&rec.ID, &data, &rec.DocumentPath, &rec.DocumentHash, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Data = data
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}
