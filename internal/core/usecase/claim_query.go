package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kirillkom/farmsure/internal/core/domain"
	"github.com/kirillkom/farmsure/internal/core/ports"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type ClaimQueryUseCase struct {
	repo      ports.ClaimRepository
	storage   ports.ObjectStorage
	hasher    ports.Fingerprinter
	inspector ports.DocumentInspector
	exporter  ports.ClaimExporter
	logger    *slog.Logger
}

func NewClaimQueryUseCase(
	repo ports.ClaimRepository,
	storage ports.ObjectStorage,
	hasher ports.Fingerprinter,
	inspector ports.DocumentInspector,
	exporter ports.ClaimExporter,
	logger *slog.Logger,
) *ClaimQueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClaimQueryUseCase{
		repo:      repo,
		storage:   storage,
		hasher:    hasher,
		inspector: inspector,
		exporter:  exporter,
		logger:    logger,
	}
}

func (uc *ClaimQueryUseCase) GetByID(ctx context.Context, id string) (*domain.ClaimRecord, error) {
	return uc.repo.GetByID(ctx, id)
}

// OpenDocument returns the stored report. A record whose file is gone is
// reported as not found.
func (uc *ClaimQueryUseCase) OpenDocument(ctx context.Context, id string) (*ports.Document, error) {
	path, err := uc.repo.GetDocumentPath(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := uc.readDocument(ctx, id, path)
	if err != nil {
		return nil, err
	}
	return &ports.Document{
		Name:    id + ".pdf",
		Content: nopSeekCloser{bytes.NewReader(raw)},
	}, nil
}

// Verify re-hashes the stored report and compares it with the recorded fingerprint.
func (uc *ClaimQueryUseCase) Verify(ctx context.Context, id string) (*domain.Verification, error) {
	rec, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := uc.readDocument(ctx, id, rec.DocumentPath)
	if err != nil {
		return nil, err
	}
	current, err := uc.hasher.Fingerprint(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("fingerprint report: %w", err)
	}

	pages := 0
	if uc.inspector != nil {
		pages, err = uc.inspector.PageCount(bytes.NewReader(raw), int64(len(raw)))
		if err != nil {
			uc.logger.Warn("report_inspect_failed", "claim_id", id, "error", err)
			pages = 0
		}
	}

	return &domain.Verification{
		ClaimID:      id,
		RecordedHash: rec.DocumentHash,
		CurrentHash:  current,
		Match:        current == rec.DocumentHash,
		Pages:        pages,
	}, nil
}

func (uc *ClaimQueryUseCase) List(ctx context.Context, limit int) ([]domain.ClaimRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return uc.repo.List(ctx, limit)
}

func (uc *ClaimQueryUseCase) Export(ctx context.Context, limit int, w io.Writer) error {
	records, err := uc.List(ctx, limit)
	if err != nil {
		return err
	}
	if err := uc.exporter.WriteClaims(w, records); err != nil {
		return fmt.Errorf("export claims: %w", err)
	}
	return nil
}

func (uc *ClaimQueryUseCase) readDocument(ctx context.Context, id, path string) ([]byte, error) {
	key, ok := uc.storage.Key(path)
	if !ok {
		return nil, domain.WrapError(domain.ErrClaimNotFound, "open report", fmt.Errorf("claim %s: document outside storage", id))
	}
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return raw, nil
}

type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }
