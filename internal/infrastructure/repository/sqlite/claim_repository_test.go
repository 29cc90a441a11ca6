package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

func newRepo(t *testing.T) *ClaimRepository {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "claims.db"))
	require.NoError(t, err)
	repo := NewClaimRepository(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func record(id string, created time.Time) *domain.ClaimRecord {
	return &domain.ClaimRecord{
		ID:           id,
		Data:         json.RawMessage(`{"id":"` + id + `"}`),
		DocumentPath: "storage/pdfs/" + id + ".pdf",
		DocumentHash: "hash-" + id,
		CreatedAt:    created,
	}
}

func TestCreateAndGetByID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, record("abc", created)))

	got, err := repo.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.JSONEq(t, `{"id":"abc"}`, string(got.Data))
	assert.Equal(t, "storage/pdfs/abc.pdf", got.DocumentPath)
	assert.Equal(t, "hash-abc", got.DocumentHash)
	assert.True(t, got.CreatedAt.Equal(created), "created_at %v", got.CreatedAt)

	path, err := repo.GetDocumentPath(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "storage/pdfs/abc.pdf", path)
}

func TestGetByIDMissingReturnsNotFound(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, domain.IsKind(err, domain.ErrClaimNotFound), "got %v", err)

	_, err = repo.GetDocumentPath(context.Background(), "missing")
	assert.True(t, domain.IsKind(err, domain.ErrClaimNotFound), "got %v", err)
}

func TestCreateUpsertsSameID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, record("abc", created)))
	updated := record("abc", created.Add(time.Hour))
	updated.DocumentHash = "second"
	require.NoError(t, repo.Create(ctx, updated))

	got, err := repo.GetByID(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "second", got.DocumentHash)
	assert.True(t, got.CreatedAt.Equal(created))

	all, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, record(id, base.Add(time.Duration(i)*time.Hour))))
	}

	got, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestPing(t *testing.T) {
	repo := newRepo(t)
	assert.NoError(t, repo.Ping(context.Background()))
}
