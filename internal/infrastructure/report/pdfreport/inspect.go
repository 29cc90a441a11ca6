package pdfreport

import (
	"fmt"
	"io"

	lpdf "github.com/ledongthuc/pdf"
)

// Inspector reads page structure back from stored documents.
type Inspector struct{}

func NewInspector() Inspector {
	return Inspector{}
}

func (Inspector) PageCount(r io.ReaderAt, size int64) (int, error) {
	reader, err := lpdf.NewReader(r, size)
	if err != nil {
		return 0, fmt.Errorf("parse pdf: %w", err)
	}
	return reader.NumPage(), nil
}
