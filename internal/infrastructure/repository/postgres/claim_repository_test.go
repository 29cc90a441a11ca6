package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ClaimRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ClaimRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestCreateUpsertsClaim(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	rec := &domain.ClaimRecord{
		ID:           "abc",
		Data:         json.RawMessage(`{"id":"abc"}`),
		DocumentPath: "storage/pdfs/abc.pdf",
		DocumentHash: "deadbeef",
		CreatedAt:    created,
	}
	mock.ExpectExec("INSERT INTO claims").
		WithArgs("abc", []byte(`{"id":"abc"}`), "storage/pdfs/abc.pdf", "deadbeef", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, data, pdf_path, pdf_hash, created_at").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDScansRecord(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "data", "pdf_path", "pdf_hash", "created_at"}).
		AddRow("abc", []byte(`{"id":"abc"}`), "storage/pdfs/abc.pdf", "deadbeef", created)
	mock.ExpectQuery("SELECT id, data, pdf_path, pdf_hash, created_at").
		WithArgs("abc").
		WillReturnRows(rows)

	rec, err := repo.GetByID(context.Background(), "abc")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if rec.DocumentHash != "deadbeef" || string(rec.Data) != `{"id":"abc"}` || !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestGetDocumentPathReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT pdf_path FROM claims").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetDocumentPath(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	newer := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "data", "pdf_path", "pdf_hash", "created_at"}).
		AddRow("b", []byte(`{}`), "p/b.pdf", "h2", newer).
		AddRow("a", []byte(`{}`), "p/a.pdf", "h1", older)
	mock.ExpectQuery("ORDER BY created_at DESC").
		WithArgs(2).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("unexpected order %+v", got)
	}
}

func TestCreateWrapsDriverError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO claims").WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &domain.ClaimRecord{ID: "x", Data: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatalf("expected error")
	}
}
