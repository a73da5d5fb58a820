package format

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/serpro69/gh-backport/internal/config"
)

// CrunchRow is one pull request in the crunch report
type CrunchRow struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Backported bool      `json:"backported"`
	Merged     bool      `json:"merged"`
	MergedAt   time.Time `json:"merged_at,omitzero"`
	URL        string    `json:"html_url,omitempty"`
}

// CrunchOptions contains options for the crunch table
type CrunchOptions struct {
	UseColor      bool
	MaxTitleWidth int // 0 = no limit
}

// FormatCrunchTable renders rows as a NUM/TITLE/BACKPORTED/MERGED AT table
// followed by a one-line summary
func FormatCrunchTable(rows []CrunchRow, opts CrunchOptions) string {
	style := NewOutputStyle(opts.UseColor)

	var output strings.Builder

	table := tablewriter.NewWriter(&output)
	table.SetHeader([]string{"NUM", "TITLE", "BACKPORTED", "MERGED AT"})
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	backported := 0
	for _, row := range rows {
		status := "no"
		if row.Backported {
			backported++
			status = style.Highlight("yes")
		}
		table.Append([]string{
			fmt.Sprintf("%d", row.Number),
			truncateString(row.Title, opts.MaxTitleWidth),
			status,
			formatMergedAt(row),
		})
	}
	table.Render()

	if len(rows) > 0 {
		output.WriteString("\n")
		output.WriteString(fmt.Sprintf("Total: %d PRs (%d backported, %d pending)", len(rows), backported, len(rows)-backported))
	}
	return output.String()
}

// FormatCrunchJSON renders rows as an indented JSON array
func FormatCrunchJSON(rows []CrunchRow) (string, error) {
	if rows == nil {
		rows = []CrunchRow{}
	}
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal crunch report: %w", err)
	}
	return string(data), nil
}

func formatMergedAt(row CrunchRow) string {
	switch {
	case !row.Merged:
		return "not merged"
	case row.MergedAt.IsZero():
		return "unknown"
	default:
		return row.MergedAt.UTC().Format(config.DateLayout)
	}
}

// truncateString truncates s to maxLen runes, preferring a word boundary
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen <= 0 || len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}

	cut := string(runes[:maxLen-3])
	if lastSpace := strings.LastIndex(cut, " "); lastSpace > len(cut)/2 {
		cut = cut[:lastSpace]
	}
	return cut + "..."
}
