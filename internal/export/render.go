// Package export renders filtered collections as CSV and JSON artifacts on a
// background worker.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"
	"time"

	"deskcore/pkg/domain"
)

// Format is an artifact encoding.
type Format string

const (
	// FormatJSON renders the stored JSON array of the records.
	FormatJSON Format = "json"
	// FormatCSV renders one row per record with a header.
	FormatCSV Format = "csv"
)

// Formats lists the supported formats in default order.
var Formats = []Format{FormatJSON, FormatCSV}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(name)
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w: unsupported export format %q", domain.ErrValidation, name)
	}
	return f, nil
}

// Header returns the CSV header of d: id, the schema fields in declaration
// order, then the timestamps.
func Header(d domain.Descriptor) []string {
	header := append([]string{"id"}, d.FieldNames()...)
	return append(header, "created_at", "updated_at")
}

// CSV renders records with RFC 4180 quoting, so values holding commas,
// quotes or newlines survive a round trip through a CSV reader.
func CSV(d domain.Descriptor, records []domain.Record) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header(d)); err != nil {
		return nil, err
	}
	for _, rec := range records {
		meta := rec.Meta()
		row := append([]string{meta.ID}, d.Row(rec)...)
		row = append(row, stamp(meta.CreatedAt), stamp(meta.UpdatedAt))
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON renders records in the persisted collection encoding.
func JSON(d domain.Descriptor, records []domain.Record) ([]byte, error) {
	return d.Encode(records)
}

// Render encodes records as f.
func Render(f Format, d domain.Descriptor, records []domain.Record) ([]byte, error) {
	switch f {
	case FormatCSV:
		return CSV(d, records)
	case FormatJSON:
		return JSON(d, records)
	}
	return nil, fmt.Errorf("%w: unsupported export format %q", domain.ErrValidation, f)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
