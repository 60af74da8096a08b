// Package backup exports the trade collection to portable documents and
// validates documents offered for import.
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "mindful-trader/internal/errors"
	"mindful-trader/internal/models"
)

// Format is a backup document format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", apperrors.NewValidationError("format", s, "must be json, yaml or csv")
}

// FormatOf guesses the format of a file from its extension, defaulting to JSON.
func FormatOf(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return FormatJSON
	}
	return f
}

// FileName returns the conventional backup file name for a given day.
func FileName(now time.Time, format Format) string {
	return fmt.Sprintf("mindful_trader_backup_%s.%s", now.Format(models.DateLayout), format)
}

// ContentType returns the MIME type of format.
func ContentType(format Format) string {
	switch format {
	case FormatYAML:
		return "application/yaml"
	case FormatCSV:
		return "text/csv"
	default:
		return "application/json"
	}
}

// Export writes trades verbatim, embedded images included, in format.
// CSV is a flat report without images and cannot be imported back.
func Export(w io.Writer, trades []models.Trade, format Format) error {
	if trades == nil {
		trades = []models.Trade{}
	}
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(trades)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(trades); err != nil {
			return err
		}
		return enc.Close()
	case FormatCSV:
		return exportCSV(w, trades)
	}
	return apperrors.NewValidationError("format", format, "unsupported export format")
}

// Import decodes a JSON backup. The document must be a list; when non-empty
// its first element must carry an id and a date. Anything else rejects the
// whole document with an *errors.ImportError.
func Import(r io.Reader) ([]models.Trade, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewImportError("unreadable document", err)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewImportError("document is not a list of trades", err)
	}
	if err := sniff(records); err != nil {
		return nil, err
	}

	var trades []models.Trade
	if err := json.Unmarshal(data, &trades); err != nil {
		return nil, apperrors.NewImportError("trade fields have unexpected types", err)
	}
	return normalize(trades), nil
}

// ImportYAML decodes a YAML backup with the same checks as Import.
func ImportYAML(r io.Reader) ([]models.Trade, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewImportError("unreadable document", err)
	}

	var records []map[string]any
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, apperrors.NewImportError("document is not a list of trades", err)
	}
	if err := sniff(records); err != nil {
		return nil, err
	}

	var trades []models.Trade
	if err := yaml.Unmarshal(data, &trades); err != nil {
		return nil, apperrors.NewImportError("trade fields have unexpected types", err)
	}
	return normalize(trades), nil
}

// Decode imports a document in format. CSV reports cannot be imported.
func Decode(r io.Reader, format Format) ([]models.Trade, error) {
	switch format {
	case FormatJSON:
		return Import(r)
	case FormatYAML:
		return ImportYAML(r)
	}
	return nil, apperrors.NewImportError(fmt.Sprintf("%s documents cannot be imported", format), nil)
}

// sniff checks the shape of the first record only.
func sniff(records []map[string]any) error {
	if records == nil {
		// "null" decodes to a nil slice; only an explicit list is accepted.
		return apperrors.NewImportError("document is not a list of trades", nil)
	}
	if len(records) == 0 {
		return nil
	}
	first := records[0]
	if !present(first["id"]) || !present(first["date"]) {
		return apperrors.NewImportError("first record has no id or date", nil)
	}
	return nil
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	}
	return true
}

func normalize(trades []models.Trade) []models.Trade {
	if trades == nil {
		return []models.Trade{}
	}
	return trades
}

// LatestDate returns the greatest trade date. Dates are ISO formatted, so
// string order is calendar order.
func LatestDate(trades []models.Trade) string {
	latest := ""
	for _, t := range trades {
		if t.Date > latest {
			latest = t.Date
		}
	}
	return latest
}
