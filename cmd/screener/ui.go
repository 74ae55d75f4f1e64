package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"stock-screener/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true).
			Padding(0, 1)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

var tableHeaders = []string{"Ticker", "Ratings", "Market Cap", "Price Target", "Forward PE", "Ownership", "Verdict"}

// renderResults draws one row per record followed by the buy list.
func renderResults(result *types.JobResult) string {
	rows := make([][]string, 0, len(result.Records))
	for _, r := range result.Records {
		row := append([]string{r.Ticker}, r.Markers()...)
		verdict := "FAIL"
		if r.Passed {
			verdict = "BUY"
		}
		rows = append(rows, append(row, verdict))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))).
		Headers(tableHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row < 0 || row >= len(result.Records):
				return cellStyle
			case col == len(tableHeaders)-1 && result.Records[row].Passed:
				return passStyle
			case col == len(tableHeaders)-1:
				return failStyle
			default:
				return cellStyle
			}
		})

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Screened %d tickers against forward P/E %g",
		len(result.Records), result.Benchmark)))
	b.WriteString("\n")
	b.WriteString(t.Render())
	b.WriteString("\n")
	if len(result.BuyCandidates) == 0 {
		b.WriteString(mutedStyle.Render("No tickers met all conditions."))
	} else {
		b.WriteString(passStyle.UnsetPadding().Render("Buy: " + strings.Join(result.BuyCandidates, ", ")))
	}
	return b.String()
}
