// package formatter renders content records as JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/oe/sunrain-sub001/internal/models"
	"github.com/oe/sunrain-sub001/internal/shared"
)

// Format is an output encoding for a record list.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "text"
)

// Formats lists every supported format in display order.
var Formats = []Format{JSON, CSV, Markdown, Text}

// ParseFormat resolves a format name. "md" and "txt" are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "text", "txt":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case CSV:
		return "csv"
	case Markdown:
		return "md"
	case Text:
		return "txt"
	default:
		return "json"
	}
}

// Export renders records in format f.
func Export(records []models.ContentRecord, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return ExportToJSON(records)
	case CSV:
		return ExportToCSV(records)
	case Markdown:
		return ExportToMarkdown(records)
	case Text:
		return ExportToText(records)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// Write renders records in format f to w.
func Write(w io.Writer, records []models.ContentRecord, f Format) error {
	data, err := Export(records, f)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s output: %w", f, err)
	}
	return nil
}

// ExportToJSON renders records as an indented JSON array. An empty list renders as [].
func ExportToJSON(records []models.ContentRecord) ([]byte, error) {
	if records == nil {
		records = []models.ContentRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

var csvHeaders = []string{
	"ID", "Source", "Type", "Title", "Artist", "Themes", "Benefits",
	"Quality", "Relevance", "Total", "Affiliate", "URL",
}

// ExportToCSV renders records as CSV with one row per record. Themes and benefits are joined with ";".
func ExportToCSV(records []models.ContentRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		record := []string{
			r.ID,
			string(r.Source),
			string(r.Type),
			r.Title,
			r.Artist,
			strings.Join(r.Themes, ";"),
			strings.Join(r.Benefits, ";"),
			strconv.Itoa(r.QualityScore),
			strconv.Itoa(r.RelevanceScore),
			strconv.Itoa(r.TotalScore()),
			strconv.FormatBool(r.Affiliate),
			r.ExternalURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders records as a numbered Markdown list grouped under one heading.
func ExportToMarkdown(records []models.ContentRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Therapeutic Music\n\n")
	buf.WriteString(fmt.Sprintf("**Records**: %d\n\n", len(records)))

	for i, r := range records {
		buf.WriteString(fmt.Sprintf("%d. [%s](%s)", i+1, escapeMarkdown(r.Title), r.ExternalURL))
		if r.Artist != "" {
			buf.WriteString(fmt.Sprintf(" by %s", escapeMarkdown(r.Artist)))
		}
		buf.WriteString(fmt.Sprintf(" (%s %s, score %d)\n", r.Source, r.Type, r.TotalScore()))

		if len(r.Themes) > 0 {
			buf.WriteString(fmt.Sprintf("   - Themes: %s\n", strings.Join(r.Themes, ", ")))
		}
		if len(r.Benefits) > 0 {
			buf.WriteString(fmt.Sprintf("   - Benefits: %s\n", strings.Join(r.Benefits, ", ")))
		}
	}

	return buf.Bytes(), nil
}

var markdownEscaper = strings.NewReplacer("[", `\[`, "]", `\]`, "*", `\*`, "_", `\_`)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// ExportToText renders records as plain numbered lines.
func ExportToText(records []models.ContentRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Records: %d\n\n", len(records)))

	for i, r := range records {
		line := fmt.Sprintf("%d. %s", i+1, r.Title)
		if r.Artist != "" {
			line += " - " + r.Artist
		}
		buf.WriteString(fmt.Sprintf("%s [%s, %d]\n", line, r.Source, r.TotalScore()))
		buf.WriteString(fmt.Sprintf("   %s\n", r.ExternalURL))
	}

	return buf.Bytes(), nil
}

// WriteExport renders records to a file and returns its path.
//
// Defaults to content.{ext} in the working directory.
func WriteExport(records []models.ContentRecord, f Format, path string) (string, error) {
	if path == "" {
		path = "content." + f.Extension()
	}

	data, err := Export(records, f)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}

	return path, nil
}
