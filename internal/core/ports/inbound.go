package ports

import (
	"context"
	"io"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

// ClaimSubmitter is the inbound contract for claim submission orchestration.
type ClaimSubmitter interface {
	Submit(ctx context.Context, in domain.ClaimInput, files []domain.EvidenceFile) (*domain.SubmissionResult, error)
}

// ClaimReader is the inbound read model for claim records and their documents.
type ClaimReader interface {
	GetByID(ctx context.Context, id string) (*domain.ClaimRecord, error)
	OpenDocument(ctx context.Context, id string) (*Document, error)
	Verify(ctx context.Context, id string) (*domain.Verification, error)
	List(ctx context.Context, limit int) ([]domain.ClaimRecord, error)
	Export(ctx context.Context, limit int, w io.Writer) error
}
