package format

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []CrunchRow {
	return []CrunchRow{
		{Number: 100, Title: "Fix parser crash", Backported: true, Merged: true,
			MergedAt: time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC)},
		{Number: 101, Title: "Speed up indexing", Merged: true,
			MergedAt: time.Date(2021, 3, 2, 12, 0, 0, 0, time.UTC)},
		{Number: 102, Title: "Draft idea"},
	}
}

func TestFormatCrunchTable(t *testing.T) {
	out := FormatCrunchTable(sampleRows(), CrunchOptions{})

	header := strings.SplitN(out, "\n", 2)[0]
	for _, col := range []string{"NUM", "TITLE", "BACKPORTED", "MERGED AT"} {
		assert.Contains(t, header, col)
	}
	assert.Contains(t, out, "Fix parser crash")
	assert.Contains(t, out, "2021-03-01")
	assert.Contains(t, out, "not merged")
	assert.Contains(t, out, "Total: 3 PRs (1 backported, 2 pending)")
}

func TestFormatCrunchTableEmpty(t *testing.T) {
	out := FormatCrunchTable(nil, CrunchOptions{})
	assert.NotContains(t, out, "Total:")
}

func TestFormatCrunchJSON(t *testing.T) {
	out, err := FormatCrunchJSON(sampleRows())
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, float64(100), decoded[0]["number"])
	assert.Equal(t, true, decoded[0]["backported"])
	assert.Equal(t, "2021-03-01T12:00:00Z", decoded[0]["merged_at"])
	assert.NotContains(t, decoded[2], "merged_at", "zero merge time is omitted")

	empty, err := FormatCrunchJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", empty)
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"no limit", "a long title here", 0, "a long title here"},
		{"fits", "short", 10, "short"},
		{"word boundary", "Fix the parser crash on empty input", 20, "Fix the parser..."},
		{"no space", "abcdefghijklmnop", 8, "abcde..."},
		{"tiny", "abcdef", 2, "ab"},
		{"multibyte", "ÄÖÜäöüß", 5, "ÄÖ..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateString(tt.input, tt.maxLen))
		})
	}
}
