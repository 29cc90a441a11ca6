package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kirillkom/farmsure/internal/core/domain"
	"github.com/kirillkom/farmsure/internal/core/ports"
)

const (
	imagesPrefix    = "images"
	documentsPrefix = "pdfs"
	cleanupTimeout  = 10 * time.Second
	publishTimeout  = 3 * time.Second
)

type SubmitClaimDependencies struct {
	Repo     ports.ClaimRepository
	Storage  ports.ObjectStorage
	Weather  ports.WeatherProvider
	Imagery  ports.ImageryProvider
	Renderer ports.ReportRenderer
	Hasher   ports.Fingerprinter
	Events   ports.EventPublisher
	Observer ports.PipelineObserver
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

type SubmitClaimUseCase struct {
	repo     ports.ClaimRepository
	storage  ports.ObjectStorage
	weather  ports.WeatherProvider
	imagery  ports.ImageryProvider
	renderer ports.ReportRenderer
	hasher   ports.Fingerprinter
	events   ports.EventPublisher
	observer ports.PipelineObserver
	clock    clockwork.Clock
	logger   *slog.Logger
	newID    func() string

	publishTimeout time.Duration
}

func NewSubmitClaimUseCase(deps SubmitClaimDependencies) *SubmitClaimUseCase {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	observer := deps.Observer
	if observer == nil {
		observer = noopObserver{}
	}
	return &SubmitClaimUseCase{
		repo:     deps.Repo,
		storage:  deps.Storage,
		weather:  deps.Weather,
		imagery:  deps.Imagery,
		renderer: deps.Renderer,
		hasher:   deps.Hasher,
		events:   deps.Events,
		observer: observer,
		clock:    clock,
		logger:   logger,
		newID:    newClaimID,

		publishTimeout: publishTimeout,
	}
}

// Submit runs the claim pipeline: store evidence, enrich with weather and
// imagery, render, fingerprint the stored document and persist the record.
// Enrichment failures degrade the claim; any later failure removes the files
// written for it.
func (uc *SubmitClaimUseCase) Submit(
	ctx context.Context,
	in domain.ClaimInput,
	files []domain.EvidenceFile,
) (*domain.SubmissionResult, error) {
	loc, err := in.Validate()
	if err != nil {
		uc.observer.RecordSubmission("invalid", len(files))
		return nil, err
	}

	id := uc.newID()
	claim := domain.NewClaim(id, in, loc)
	var written []string
	fail := func(err error) (*domain.SubmissionResult, error) {
		uc.cleanup(ctx, id, written)
		outcome := "error"
		if domain.IsKind(err, domain.ErrRender) {
			outcome = "render_error"
		}
		uc.observer.RecordSubmission(outcome, len(files))
		return nil, err
	}

	keys := make([]string, 0, len(files)+1)
	for _, f := range files {
		key := fmt.Sprintf("%s/%s_%s_%s", imagesPrefix, id, uuid.NewString()[:8], sanitizeFilename(f.Filename))
		if err := uc.storage.Save(ctx, key, f.Body); err != nil {
			return fail(fmt.Errorf("save evidence: %w", err))
		}
		written = append(written, key)
		keys = append(keys, key)
	}

	claim.WeatherSummary = uc.summarizeWeather(ctx, id, loc, claim.DateFrom, claim.DateTo)

	imagery, fallback := uc.fetchImagery(ctx, id, loc)
	if len(imagery) > 0 {
		key := fmt.Sprintf("%s/%s_sat.png", imagesPrefix, id)
		if err := uc.storage.Save(ctx, key, bytes.NewReader(imagery)); err != nil {
			return fail(fmt.Errorf("save satellite image: %w", err))
		}
		written = append(written, key)
		keys = append(keys, key)
	}

	saved := make([]string, 0, len(keys))
	for _, key := range keys {
		saved = append(saved, uc.storage.Path(key))
	}
	claim.Evidence = saved

	var doc bytes.Buffer
	renderStart := uc.clock.Now()
	err = uc.renderer.Render(ctx, claim, keys, imagery, &doc)
	uc.observer.RecordRenderDuration(uc.clock.Since(renderStart))
	if err != nil {
		if !domain.IsKind(err, domain.ErrRender) {
			err = domain.WrapError(domain.ErrRender, "render report", err)
		}
		return fail(err)
	}
	docKey := fmt.Sprintf("%s/%s.pdf", documentsPrefix, id)
	if err := uc.storage.Save(ctx, docKey, &doc); err != nil {
		return fail(domain.WrapError(domain.ErrRender, "store report", err))
	}
	written = append(written, docKey)

	hash, err := uc.fingerprintStored(ctx, docKey)
	if err != nil {
		return fail(err)
	}

	data, err := json.Marshal(claim)
	if err != nil {
		return fail(fmt.Errorf("marshal claim: %w", err))
	}
	now := uc.clock.Now().UTC()
	rec := &domain.ClaimRecord{
		ID:           id,
		Data:         data,
		DocumentPath: uc.storage.Path(docKey),
		DocumentHash: hash,
		CreatedAt:    now,
	}
	if err := uc.repo.Create(ctx, rec); err != nil {
		return fail(fmt.Errorf("persist claim record: %w", err))
	}

	uc.publish(ctx, domain.ClaimSubmitted{
		ClaimID:   id,
		PDFHash:   hash,
		CropType:  claim.CropType,
		WeatherOK: !claim.WeatherSummary.Failed(),
		CreatedAt: now,
	})

	outcome := "ok"
	if fallback || claim.WeatherSummary.Failed() {
		outcome = "degraded"
	}
	uc.observer.RecordSubmission(outcome, len(files))

	return &domain.SubmissionResult{
		ClaimID:         id,
		DocumentURL:     "/api/claims/" + id + "/pdf",
		DocumentHash:    hash,
		SavedImages:     saved,
		WeatherSummary:  claim.WeatherSummary,
		ImageryFallback: fallback,
	}, nil
}

func (uc *SubmitClaimUseCase) summarizeWeather(
	ctx context.Context,
	claimID string,
	loc domain.Location,
	from, to string,
) *domain.WeatherSummary {
	if uc.weather == nil {
		return domain.WeatherError(fmt.Errorf("weather provider disabled"))
	}
	series, raw, err := uc.weather.Daily(ctx, loc, from, to)
	if err != nil {
		uc.logger.Warn("weather_fetch_failed", "claim_id", claimID, "error", err)
		uc.observer.RecordDegradation("weather")
		return uc.weatherMarker(err)
	}
	if !json.Valid(raw) {
		raw = nil
	}
	summary, err := domain.SummarizeWeather(uc.weather.Name(), series, raw)
	if err != nil {
		uc.logger.Warn("weather_summary_failed", "claim_id", claimID, "error", err)
		uc.observer.RecordDegradation("weather")
		return uc.weatherMarker(err)
	}
	return &summary
}

// weatherMarker keeps the provider name for the report heading; it is not
// part of the stored marker.
func (uc *SubmitClaimUseCase) weatherMarker(err error) *domain.WeatherSummary {
	mark := domain.WeatherError(err)
	mark.Provider = uc.weather.Name()
	return mark
}

func (uc *SubmitClaimUseCase) fetchImagery(ctx context.Context, claimID string, loc domain.Location) ([]byte, bool) {
	if uc.imagery == nil {
		return nil, true
	}
	img, err := uc.imagery.Fetch(ctx, loc)
	if err != nil {
		uc.logger.Warn("imagery_fetch_failed", "claim_id", claimID, "error", err)
		uc.observer.RecordDegradation("imagery")
		return nil, true
	}
	return img, len(img) == 0
}

func (uc *SubmitClaimUseCase) fingerprintStored(ctx context.Context, key string) (string, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("open stored report: %w", err)
	}
	defer rc.Close()

	hash, err := uc.hasher.Fingerprint(rc)
	if err != nil {
		return "", fmt.Errorf("fingerprint report: %w", err)
	}
	return hash, nil
}

func (uc *SubmitClaimUseCase) publish(ctx context.Context, evt domain.ClaimSubmitted) {
	if uc.events == nil {
		return
	}
	// The record is already committed; a slow broker must not hold the response.
	pubCtx, cancel := context.WithTimeout(ctx, uc.publishTimeout)
	defer cancel()
	if err := uc.events.PublishClaimSubmitted(pubCtx, evt); err != nil {
		uc.logger.Warn("claim_event_publish_failed", "claim_id", evt.ClaimID, "error", err)
	}
}

func (uc *SubmitClaimUseCase) cleanup(ctx context.Context, claimID string, keys []string) {
	if len(keys) == 0 {
		return
	}
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	for _, key := range keys {
		if err := uc.storage.Delete(cleanupCtx, key); err != nil {
			uc.logger.Warn("claim_cleanup_failed", "claim_id", claimID, "key", key, "error", err)
		}
	}
}

type noopObserver struct{}

func (noopObserver) RecordSubmission(string, int)       {}
func (noopObserver) RecordDegradation(string)           {}
func (noopObserver) RecordRenderDuration(time.Duration) {}

func newClaimID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		base = ""
	}
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "evidence.bin"
	}
	return base
}
