package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

type memStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	deleted []string
	saveErr map[string]error
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}, saveErr: map[string]error{}}
}

func (s *memStorage) Save(_ context.Context, key string, data io.Reader) error {
	for suffix, err := range s.saveErr {
		if strings.HasSuffix(key, suffix) {
			return err
		}
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[key] = raw
	return nil
}

func (s *memStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.files[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrClaimNotFound, "open file", fs.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *memStorage) Path(key string) string { return "/data/" + key }

func (s *memStorage) Key(path string) (string, bool) {
	if !strings.HasPrefix(path, "/data/") {
		return "", false
	}
	return strings.TrimPrefix(path, "/data/"), true
}

func (s *memStorage) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for k := range s.files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type repoFake struct {
	records map[string]domain.ClaimRecord
	err     error
}

func newRepoFake() *repoFake {
	return &repoFake{records: map[string]domain.ClaimRecord{}}
}

func (f *repoFake) Create(_ context.Context, rec *domain.ClaimRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records[rec.ID] = *rec
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.ClaimRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrClaimNotFound, "get claim", fmt.Errorf("id=%s", id))
	}
	return &rec, nil
}

func (f *repoFake) GetDocumentPath(ctx context.Context, id string) (string, error) {
	rec, err := f.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.DocumentPath, nil
}

func (f *repoFake) List(_ context.Context, limit int) ([]domain.ClaimRecord, error) {
	out := make([]domain.ClaimRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *repoFake) Ping(context.Context) error { return nil }

type weatherFake struct {
	series domain.DailySeries
	raw    []byte
	err    error
}

func (f *weatherFake) Name() string { return "fake-weather" }

func (f *weatherFake) Daily(context.Context, domain.Location, string, string) (domain.DailySeries, []byte, error) {
	return f.series, f.raw, f.err
}

type imageryFake struct {
	img []byte
	err error
}

func (f *imageryFake) Fetch(context.Context, domain.Location) ([]byte, error) {
	return f.img, f.err
}

type rendererFake struct {
	claim   domain.Claim
	keys    []string
	imagery []byte
	err     error
}

func (f *rendererFake) Render(_ context.Context, claim domain.Claim, keys []string, imagery []byte, out io.Writer) error {
	f.claim = claim
	f.keys = append([]string(nil), keys...)
	f.imagery = imagery
	if f.err != nil {
		return f.err
	}
	_, err := fmt.Fprintf(out, "%%PDF-fake %s %d", claim.ID, len(keys))
	return err
}

type sha256Hasher struct{}

func (sha256Hasher) Fingerprint(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type eventsFake struct {
	events []domain.ClaimSubmitted
	err    error
}

func (f *eventsFake) PublishClaimSubmitted(_ context.Context, evt domain.ClaimSubmitted) error {
	f.events = append(f.events, evt)
	return f.err
}

// stalledEvents blocks until the caller's context ends.
type stalledEvents struct {
	hadDeadline bool
	err         error
}

func (f *stalledEvents) PublishClaimSubmitted(ctx context.Context, _ domain.ClaimSubmitted) error {
	_, f.hadDeadline = ctx.Deadline()
	<-ctx.Done()
	f.err = ctx.Err()
	return f.err
}

type inspectorFake struct {
	pages int
	err   error
}

func (f inspectorFake) PageCount(io.ReaderAt, int64) (int, error) {
	return f.pages, f.err
}

type exporterFake struct {
	records []domain.ClaimRecord
}

func (f *exporterFake) WriteClaims(w io.Writer, records []domain.ClaimRecord) error {
	f.records = records
	_, err := io.WriteString(w, "xlsx")
	return err
}

var errBoom = errors.New("boom")

type observerFake struct {
	outcomes     []string
	degradations []string
	renders      int
}

func (f *observerFake) RecordSubmission(outcome string, _ int) {
	f.outcomes = append(f.outcomes, outcome)
}

func (f *observerFake) RecordDegradation(provider string) {
	f.degradations = append(f.degradations, provider)
}

func (f *observerFake) RecordRenderDuration(time.Duration) { f.renders++ }
