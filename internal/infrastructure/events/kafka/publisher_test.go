package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

type fakeWriter struct {
	msgs []kafkago.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSerializeToMessage(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	msg, err := serializeToMessage(domain.ClaimSubmitted{
		ClaimID:   "abc",
		PDFHash:   "deadbeef",
		CropType:  "wheat",
		CreatedAt: created,
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("abc"), msg.Key)
	assert.Contains(t, string(msg.Value), `"pdf_hash":"deadbeef"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("claim.submitted"), msg.Headers[0].Value)
	assert.Equal(t, []byte(created.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestPublishClaimSubmittedWritesOneMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, logger: discardLogger()}

	require.NoError(t, p.PublishClaimSubmitted(context.Background(), domain.ClaimSubmitted{ClaimID: "abc"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("abc"), w.msgs[0].Key)
}

func TestPublishClaimSubmittedWrapsWriterError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &Publisher{writer: w, logger: discardLogger()}

	err := p.PublishClaimSubmitted(context.Background(), domain.ClaimSubmitted{ClaimID: "abc"})
	assert.True(t, domain.IsKind(err, domain.ErrTemporary), "got %v", err)
}
