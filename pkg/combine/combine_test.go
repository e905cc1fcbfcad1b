package combine

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnines/domo-export/pkg/config"
)

// fakeExporter serves canned exports and records the order of calls
type fakeExporter struct {
	exports map[string]string
	calls   []string
	opts    []config.Export
	onCall  func(id string)
}

func (f *fakeExporter) ExportDataset(_ context.Context, id string, opts config.Export) string {
	f.calls = append(f.calls, id)
	f.opts = append(f.opts, opts)
	if f.onCall != nil {
		f.onCall(id)
	}
	return f.exports[id]
}

func TestCombine_Scenario(t *testing.T) {
	exporter := &fakeExporter{exports: map[string]string{
		"d1": "h1,h2\n1,2\n3,4",
		"d2": "",
	}}

	out, summary, err := Combine(context.Background(), exporter, []string{"d1", "d2"}, config.Export{Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, "datasetId,h1,h2\nd1,1,2\nd1,3,4\n", out)
	assert.Equal(t, []string{"d1", "d2"}, exporter.calls)
	assert.Equal(t, config.Export{Limit: 3}, exporter.opts[0])
	assert.Equal(t, Summary{Datasets: 2, Exported: 1, Rows: 2, Skipped: []string{"d2"}}, summary)
}

func TestCombiner_EmptyFirstExportDoesNotContributeHeader(t *testing.T) {
	var c Combiner
	assert.False(t, c.Add("d0", ""))
	assert.True(t, c.Add("d1", "a,b\n1,2\n"))
	assert.True(t, c.Add("d2", "x,y\n3,4\n"))

	assert.Equal(t, "datasetId,a,b\nd1,1,2\nd2,3,4\n", c.String())
	assert.NotContains(t, c.String(), "d0")
	assert.NotContains(t, c.String(), "x,y")
}

func TestCombiner_AllEmpty(t *testing.T) {
	var c Combiner
	c.Add("d1", "")
	c.Add("d2", "  \n\r\n")

	assert.Equal(t, "", c.String())
	assert.Equal(t, []string{"d1", "d2"}, c.Summary().Skipped)
	assert.Equal(t, 0, c.Summary().Exported)
}

func TestCombiner_HeaderOnlyExport(t *testing.T) {
	var c Combiner
	assert.True(t, c.Add("d1", "h1,h2\n"))
	assert.True(t, c.Add("d2", "h1,h2\n5,6"))

	assert.Equal(t, "datasetId,h1,h2\nd2,5,6\n", c.String())
	assert.Equal(t, 1, c.Summary().Rows)
}

func TestCombiner_TrimsTrailingWhitespace(t *testing.T) {
	var c Combiner
	c.Add("d1", "h1,h2\r\n1,2  \r\n3,4\r\n")

	assert.Equal(t, "datasetId,h1,h2\nd1,1,2\nd1,3,4\n", c.String())
}

// Quoted fields holding newlines are not parsed: the row is split in two.
func TestCombiner_MultilineQuotedFieldIsSplit(t *testing.T) {
	var c Combiner
	c.Add("d1", "id,note\n1,\"first\nsecond\"\n2,plain")

	lines := strings.Split(strings.TrimSuffix(c.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"datasetId,id,note",
		"d1,1,\"first",
		"d1,second\"",
		"d1,2,plain",
	}, lines)
	assert.Equal(t, 3, c.Summary().Rows)
}

// Blank lines inside an export are kept as rows holding only the id.
func TestCombiner_BlankLineBecomesIDOnlyRow(t *testing.T) {
	var c Combiner
	c.Add("d1", "h\n1\n\n2")

	assert.Equal(t, "datasetId,h\nd1,1\nd1,\nd1,2\n", c.String())
	assert.Equal(t, 3, c.Summary().Rows)
}

func TestCombiner_SingleHeaderForAnyDatasetCount(t *testing.T) {
	for k := 0; k <= 6; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			var c Combiner
			first := ""
			for i := 0; i < k; i++ {
				csv := ""
				if i%2 == 1 {
					csv = fmt.Sprintf("col%d,val\n%d,x\n", i, i)
					if first == "" {
						first = fmt.Sprintf("col%d,val", i)
					}
				}
				c.Add(fmt.Sprintf("d%d", i), csv)
			}

			out := c.String()
			if first == "" {
				assert.Equal(t, "", out)
				return
			}
			lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
			assert.Equal(t, IDColumn+","+first, lines[0])
			assert.Equal(t, 1, strings.Count(out, IDColumn+","))
			for _, line := range lines[1:] {
				assert.True(t, strings.HasPrefix(line, "d"), line)
			}
		})
	}
}

func TestCombine_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exporter := &fakeExporter{
		exports: map[string]string{"d1": "h\n1", "d2": "h\n2", "d3": "h\n3"},
		onCall: func(id string) {
			if id == "d2" {
				cancel()
			}
		},
	}

	out, summary, err := Combine(ctx, exporter, []string{"d1", "d2", "d3"}, config.Export{Limit: 3})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"d1", "d2"}, exporter.calls)
	assert.Equal(t, "datasetId,h\nd1,1\nd2,2\n", out)
	assert.Equal(t, 2, summary.Exported)
}

func TestCombine_CancelledDuringLastExport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exporter := &fakeExporter{
		exports: map[string]string{"d1": "h\n1", "d2": "h\n2"},
	}
	exporter.onCall = func(id string) {
		if id == "d2" {
			cancel()
			// an interrupted request comes back empty
			delete(exporter.exports, "d2")
		}
	}

	out, summary, err := Combine(ctx, exporter, []string{"d1", "d2"}, config.Export{Limit: 3})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"d1", "d2"}, exporter.calls)
	assert.Equal(t, "datasetId,h\nd1,1\n", out)
	assert.Equal(t, []string{"d2"}, summary.Skipped)
}

func TestCombine_NoDatasets(t *testing.T) {
	out, summary, err := Combine(context.Background(), &fakeExporter{}, nil, config.Export{Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, "", out)
	assert.Equal(t, 0, summary.Datasets)
}
