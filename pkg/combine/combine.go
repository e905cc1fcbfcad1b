// Package combine merges the CSV exports of several datasets into one CSV text.
//
// Lines are split on "\n" without any CSV parsing: a quoted field holding a newline
// ends up split across two output rows.
package combine

import (
	"context"
	"strings"

	"github.com/saturnines/domo-export/pkg/config"
)

// IDColumn is the name of the column prepended to every row
const IDColumn = "datasetId"

// Exporter fetches the CSV text of one dataset. An empty string means "skip it".
type Exporter interface {
	ExportDataset(ctx context.Context, id string, opts config.Export) string
}

// Summary counts what went into a combined CSV
type Summary struct {
	Datasets int      // datasets offered to the combiner
	Exported int      // datasets that contributed a header or rows
	Rows     int      // data rows written, header excluded
	Skipped  []string // ids of empty exports, in order
}

// Combiner accumulates dataset exports. The zero value is ready to use.
type Combiner struct {
	b       strings.Builder
	header  bool
	summary Summary
}

// Add appends one dataset export and reports whether it contributed anything.
// The first non-empty export supplies the shared header; later headers are dropped.
func (c *Combiner) Add(id, csv string) bool {
	c.summary.Datasets++

	lines := splitLines(csv)
	if len(lines) == 0 {
		c.summary.Skipped = append(c.summary.Skipped, id)
		return false
	}

	if !c.header {
		c.writeLine(IDColumn, lines[0])
		c.header = true
	}
	for _, line := range lines[1:] {
		c.writeLine(id, line)
		c.summary.Rows++
	}

	c.summary.Exported++
	return true
}

// String returns the combined CSV, empty when nothing was added
func (c *Combiner) String() string {
	return c.b.String()
}

// Summary returns the counters collected so far
func (c *Combiner) Summary() Summary {
	s := c.summary
	s.Skipped = append([]string(nil), c.summary.Skipped...)
	return s
}

func (c *Combiner) writeLine(prefix, line string) {
	c.b.WriteString(prefix)
	c.b.WriteByte(',')
	c.b.WriteString(line)
	c.b.WriteByte('\n')
}

// Combine exports every dataset in order and merges the results.
// A cancelled context stops the loop before the next export, and an export
// cut short by cancellation fails the whole merge instead of counting as empty.
func Combine(ctx context.Context, exporter Exporter, ids []string, opts config.Export) (string, Summary, error) {
	var c Combiner
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return c.String(), c.Summary(), err
		}
		c.Add(id, exporter.ExportDataset(ctx, id, opts))
	}
	// the last export may have been interrupted
	if err := ctx.Err(); err != nil {
		return c.String(), c.Summary(), err
	}
	return c.String(), c.Summary(), nil
}

// splitLines trims trailing whitespace from the text and from every line
func splitLines(csv string) []string {
	csv = strings.TrimRight(csv, " \t\r\n")
	if csv == "" {
		return nil
	}

	lines := strings.Split(csv, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return lines
}
