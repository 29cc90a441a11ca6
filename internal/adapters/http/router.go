package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"regexp"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/farmsure/internal/config"
	"github.com/kirillkom/farmsure/internal/core/domain"
	"github.com/kirillkom/farmsure/internal/core/ports"
	"github.com/kirillkom/farmsure/internal/observability/metrics"
)

const (
	serviceName        = "farmsure-api"
	multipartMemory    = 8 << 20
	defaultUploadSize  = 50 << 20
	defaultExportLimit = 500
	xlsxContentType    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var claimIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// formFileFields lists accepted multipart names for evidence files.
var formFileFields = []string{"files", "files[]"}

type Router struct {
	cfg       config.Config
	submitter ports.ClaimSubmitter
	reader    ports.ClaimReader
	metrics   *metrics.HTTPServerMetrics
	ready     func(context.Context) error
	clock     clockwork.Clock
	logger    *slog.Logger

	openapiJSON []byte
	openapiErr  error
}

type RouterOption func(*Router)

func WithMetrics(m *metrics.HTTPServerMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

// WithReadiness sets the dependency check behind /api/ready.
func WithReadiness(check func(context.Context) error) RouterOption {
	return func(rt *Router) { rt.ready = check }
}

func WithClock(clock clockwork.Clock) RouterOption {
	return func(rt *Router) { rt.clock = clock }
}

func WithLogger(logger *slog.Logger) RouterOption {
	return func(rt *Router) { rt.logger = logger }
}

func NewRouter(cfg config.Config, submitter ports.ClaimSubmitter, reader ports.ClaimReader, opts ...RouterOption) *Router {
	rt := &Router{
		cfg:       cfg,
		submitter: submitter,
		reader:    reader,
		clock:     clockwork.NewRealClock(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.cfg.MaxUploadBytes <= 0 {
		rt.cfg.MaxUploadBytes = defaultUploadSize
	}
	if rt.cfg.ExportLimit <= 0 {
		rt.cfg.ExportLimit = defaultExportLimit
	}
	rt.openapiJSON, rt.openapiErr = loadOpenAPI(context.Background())
	if rt.openapiErr != nil {
		rt.logger.Error("openapi_load_failed", "error", rt.openapiErr)
	}
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", rt.health)
	mux.HandleFunc("GET /api/ready", rt.readiness)
	mux.HandleFunc("GET /api/openapi.json", rt.openapi)
	mux.HandleFunc("POST /api/claims", rt.submitClaim)
	mux.HandleFunc("GET /api/claims/export.xlsx", rt.exportClaims)
	mux.HandleFunc("GET /api/claims/{id}", rt.getClaim)
	mux.HandleFunc("GET /api/claims/{id}/pdf", rt.getClaimReport)
	mux.HandleFunc("GET /api/claims/{id}/verify", rt.verifyClaimReport)

	var onReject rejectFunc
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
		onReject = func(reason string) { rt.metrics.RecordRejected(serviceName, reason) }
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(
		handler,
		rt.cfg.APIMaxInFlight,
		time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond,
		onReject,
	)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, onReject)
	handler = corsMiddleware(rt.cfg.CORSAllowedOrigins, handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Time:   rt.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	if rt.ready != nil {
		if err := rt.ready(r.Context()); err != nil {
			rt.logger.Warn("readiness_check_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "claim store unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ready",
		Time:   rt.clock.Now().UTC().Format(time.RFC3339),
	})
}

func (rt *Router) openapi(w http.ResponseWriter, r *http.Request) {
	if rt.openapiErr != nil {
		rt.writeError(w, r, rt.openapiErr)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rt.openapiJSON)
}

func (rt *Router) submitClaim(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > rt.cfg.MaxUploadBytes {
		rt.writeError(w, r, &http.MaxBytesError{Limit: rt.cfg.MaxUploadBytes})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			rt.writeError(w, r, err)
			return
		}
		rt.writeError(w, r, domain.Invalid("parse claim form", "multipart form data is required"))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	input := domain.ClaimInput{
		Name:              r.PostFormValue("name"),
		Aadhaar:           r.PostFormValue("aadhaar"),
		Phone:             r.PostFormValue("phone"),
		Email:             r.PostFormValue("email"),
		FarmLocation:      r.PostFormValue("farmLocation"),
		FarmSize:          r.PostFormValue("farmSize"),
		CropType:          r.PostFormValue("cropType"),
		DamageDescription: r.PostFormValue("damageDescription"),
		DateFrom:          r.PostFormValue("dateFrom"),
		DateTo:            r.PostFormValue("dateTo"),
		RainfallRange:     r.PostFormValue("rainfallRange"),
	}

	files, closeFiles, err := openEvidence(r.MultipartForm)
	defer closeFiles()
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	result, err := rt.submitter.Submit(r.Context(), input, files)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func openEvidence(form *multipart.Form) ([]domain.EvidenceFile, func(), error) {
	var (
		files   []domain.EvidenceFile
		closers []io.Closer
	)
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	for _, field := range formFileFields {
		for _, header := range form.File[field] {
			f, err := header.Open()
			if err != nil {
				return nil, closeAll, domain.WrapError(domain.ErrInvalidInput, "open evidence file", err)
			}
			closers = append(closers, f)
			files = append(files, domain.EvidenceFile{Filename: header.Filename, Body: f})
		}
	}
	return files, closeAll, nil
}

func (rt *Router) getClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := rt.claimID(w, r)
	if !ok {
		return
	}
	rec, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{
		Data:      rec.Data,
		PDFPath:   rec.DocumentPath,
		PDFHash:   rec.DocumentHash,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (rt *Router) getClaimReport(w http.ResponseWriter, r *http.Request) {
	id, ok := rt.claimID(w, r)
	if !ok {
		return
	}
	doc, err := rt.reader.OpenDocument(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	defer doc.Content.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".pdf"))
	http.ServeContent(w, r, doc.Name, doc.ModTime, doc.Content)
}

func (rt *Router) verifyClaimReport(w http.ResponseWriter, r *http.Request) {
	id, ok := rt.claimID(w, r)
	if !ok {
		return
	}
	verification, err := rt.reader.Verify(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verification)
}

func (rt *Router) exportClaims(w http.ResponseWriter, r *http.Request) {
	var limitParam *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limitParam); err != nil {
		rt.writeError(w, r, domain.Invalid("export claims", "limit must be an integer"))
		return
	}
	limit := rt.cfg.ExportLimit
	if limitParam != nil {
		limit = *limitParam
	}
	if limit <= 0 {
		rt.writeError(w, r, domain.Invalid("export claims", "limit must be positive"))
		return
	}

	var buf bytes.Buffer
	if err := rt.reader.Export(r.Context(), limit, &buf); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="claims.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// claimID binds the {id} path segment and rejects anything outside the
// identifier alphabet before it reaches storage.
func (rt *Router) claimID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", r.PathValue("id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Required:      true,
	})
	if err != nil || !claimIDPattern.MatchString(id) {
		rt.writeError(w, r, domain.Invalid("bind claim id", "invalid claim id"))
		return "", false
	}
	return id, true
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": errorMessage(err, status)})
}

type healthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

type claimResponse struct {
	Data      json.RawMessage `json:"data"`
	PDFPath   string          `json:"pdf_path"`
	PDFHash   string          `json:"pdf_hash"`
	CreatedAt string          `json:"created_at"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
