package xlsx

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/farmsure/internal/core/domain"
)

func TestWriteClaimsProducesReadableWorkbook(t *testing.T) {
	tmax := 15.0
	ok, err := json.Marshal(domain.Claim{
		ID:           "abc",
		Name:         "Ramesh",
		CropType:     "wheat",
		FarmLocation: "26.0, 84.45",
		DateFrom:     "2022-01-01",
		DateTo:       "2022-01-05",
		WeatherSummary: &domain.WeatherSummary{
			Provider:     "open-meteo",
			RainSumTotal: 3.6,
			TMaxAvg:      &tmax,
		},
	})
	require.NoError(t, err)
	failed, err := json.Marshal(domain.Claim{ID: "def", WeatherSummary: &domain.WeatherSummary{Error: "timeout"}})
	require.NoError(t, err)

	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	records := []domain.ClaimRecord{
		{ID: "abc", Data: ok, DocumentPath: "storage/pdfs/abc.pdf", DocumentHash: "h1", CreatedAt: created},
		{ID: "def", Data: failed, DocumentPath: "storage/pdfs/def.pdf", DocumentHash: "h2", CreatedAt: created},
		{ID: "bad", Data: json.RawMessage(`not json`), DocumentHash: "h3", CreatedAt: created},
	}

	var buf bytes.Buffer
	require.NoError(t, NewExporter().WriteClaims(&buf, records))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "Claim ID", rows[0][0])
	assert.Equal(t, "abc", rows[1][0])
	assert.Equal(t, "2024-03-01T09:30:00Z", rows[1][1])
	assert.Equal(t, "Ramesh", rows[1][2])
	assert.Equal(t, "3.6", rows[1][8])
	assert.Equal(t, "15", rows[1][9])
	assert.Equal(t, "timeout", rows[2][11])
	assert.Equal(t, "bad", rows[3][0])
	assert.Equal(t, "h3", rows[3][len(rows[3])-1])
}

func TestWriteClaimsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExporter().WriteClaims(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
