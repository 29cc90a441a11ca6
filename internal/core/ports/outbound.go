package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

// ClaimRepository persists and reads claim records.
type ClaimRepository interface {
	Create(ctx context.Context, rec *domain.ClaimRecord) error
	GetByID(ctx context.Context, id string) (*domain.ClaimRecord, error)
	GetDocumentPath(ctx context.Context, id string) (string, error)
	List(ctx context.Context, limit int) ([]domain.ClaimRecord, error)
	Ping(ctx context.Context) error
}

// ObjectStorage stores evidence images and rendered documents by key.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Path(key string) string
	Key(path string) (string, bool)
}

// WeatherProvider returns the daily series for a location and date range.
type WeatherProvider interface {
	Name() string
	Daily(ctx context.Context, loc domain.Location, from, to string) (domain.DailySeries, []byte, error)
}

// ImageryProvider returns a raster image of the location.
type ImageryProvider interface {
	Fetch(ctx context.Context, loc domain.Location) ([]byte, error)
}

// ReportRenderer writes the claim report document.
type ReportRenderer interface {
	Render(ctx context.Context, claim domain.Claim, evidenceKeys []string, imagery []byte, out io.Writer) error
}

// Fingerprinter hashes stored document bytes.
type Fingerprinter interface {
	Fingerprint(r io.Reader) (string, error)
}

// DocumentInspector reads structural facts from a stored document.
type DocumentInspector interface {
	PageCount(r io.ReaderAt, size int64) (int, error)
}

// EventPublisher emits claim notifications.
type EventPublisher interface {
	PublishClaimSubmitted(ctx context.Context, evt domain.ClaimSubmitted) error
}

// Document is an opened stored report.
type Document struct {
	Name    string
	ModTime time.Time
	Content io.ReadSeekCloser
}

// ClaimExporter writes claim records in a tabular download format.
type ClaimExporter interface {
	WriteClaims(w io.Writer, records []domain.ClaimRecord) error
}

// PipelineObserver receives claim pipeline measurements.
type PipelineObserver interface {
	RecordSubmission(outcome string, evidenceCount int)
	RecordDegradation(provider string)
	RecordRenderDuration(d time.Duration)
}
