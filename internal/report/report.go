// Package report renders finished screens as downloadable documents.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"stock-screener/internal/interfaces"
	"stock-screener/internal/types"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

const title = "Stock Analysis Report"

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatCSV, FormatJSON, FormatText:
		return f, nil
	case "txt":
		return FormatText, nil
	case "":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", s)
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return string(f)
}

// Builder renders a JobResult. The generation time appears only in the
// document, never in the records.
type Builder struct {
	now func() time.Time
}

var _ interfaces.ReportBuilder = (*Builder)(nil)

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Build renders result in format and names the file screen_<job>.<ext>.
func (b *Builder) Build(result *types.JobResult, format string) ([]byte, string, string, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, "", "", err
	}

	var data []byte
	switch f {
	case FormatPDF:
		data, err = b.pdf(result)
	case FormatCSV:
		data, err = b.csv(result)
	case FormatJSON:
		data, err = b.json(result)
	default:
		data = []byte(b.text(result))
	}
	if err != nil {
		return nil, "", "", fmt.Errorf("render %s report: %w", f, err)
	}
	return data, f.ContentType(), fmt.Sprintf("screen_%s.%s", result.JobID, f.Extension()), nil
}

// Save writes the rendered report into dir and returns its path.
func (b *Builder) Save(result *types.JobResult, format, dir string) (string, error) {
	data, _, name, err := b.Build(result, format)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (b *Builder) generated() string {
	return b.now().Format("2006-01-02 15:04:05")
}

func buyLine(result *types.JobResult) string {
	if len(result.BuyCandidates) == 0 {
		return "No tickers met all conditions."
	}
	return strings.Join(result.BuyCandidates, ", ")
}

func (b *Builder) text(result *types.JobResult) string {
	var sb strings.Builder

	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("=", len(title)) + "\n")
	fmt.Fprintf(&sb, "Generated: %s\n", b.generated())
	fmt.Fprintf(&sb, "Total Stocks Analyzed: %d\n", len(result.Records))
	fmt.Fprintf(&sb, "Stocks Meeting All Criteria: %d\n\n", len(result.BuyCandidates))

	sb.WriteString("Buy Tickers\n-----------\n")
	sb.WriteString(buyLine(result) + "\n\n")

	sb.WriteString("Detailed Analysis\n-----------------\n")
	for _, r := range result.Records {
		sb.WriteString(r.Ticker + "\n")
		for _, d := range r.Details {
			sb.WriteString("  " + d + "\n")
		}
		fmt.Fprintf(&sb, "  Results: %s\n\n", strings.Join(r.Markers(), " "))
	}
	return sb.String()
}

func (b *Builder) csv(result *types.JobResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"ticker"}
	for _, c := range types.Conditions {
		header = append(header, string(c))
	}
	header = append(header, "passed", "details")
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, r := range result.Records {
		row := []string{r.Ticker}
		for _, o := range r.Conditions {
			row = append(row, string(o.Result))
		}
		row = append(row, fmt.Sprintf("%t", r.Passed), strings.Join(r.Details, " | "))
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

type jsonReport struct {
	Title         string                  `json:"title"`
	JobID         string                  `json:"job_id"`
	GeneratedAt   string                  `json:"generated_at"`
	Benchmark     float64                 `json:"benchmark_forward_pe"`
	TotalAnalyzed int                     `json:"total_analyzed"`
	MeetingAll    int                     `json:"meeting_all_criteria"`
	BuyTickers    []string                `json:"buy_tickers"`
	Results       []types.ScreeningRecord `json:"results"`
	CompletedAt   time.Time               `json:"completed_at"`
}

func (b *Builder) json(result *types.JobResult) ([]byte, error) {
	buys := result.BuyCandidates
	if buys == nil {
		buys = []string{}
	}
	return json.MarshalIndent(jsonReport{
		Title:         title,
		JobID:         result.JobID,
		GeneratedAt:   b.now().UTC().Format(time.RFC3339),
		Benchmark:     result.Benchmark,
		TotalAnalyzed: len(result.Records),
		MeetingAll:    len(result.BuyCandidates),
		BuyTickers:    buys,
		Results:       result.Records,
		CompletedAt:   result.CompletedAt,
	}, "", "  ")
}

// pdfMarker spells out a marker; the core PDF fonts have no glyphs for
// the check and cross symbols.
func pdfMarker(o types.ConditionOutcome) string {
	switch o.Result {
	case types.ResultPass:
		return "PASS"
	case types.ResultFailMissingData:
		m := o.Marker()
		if i := strings.Index(m, "("); i >= 0 {
			return "FAIL " + m[i:]
		}
		return "FAIL"
	default:
		return "FAIL"
	}
}

func (b *Builder) pdf(result *types.JobResult) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetTitle(title, true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{
		"Generated: " + b.generated(),
		fmt.Sprintf("Total Stocks Analyzed: %d", len(result.Records)),
		fmt.Sprintf("Stocks Meeting All Criteria: %d", len(result.BuyCandidates)),
	} {
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "Buy Tickers", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 6, tr(buyLine(result)), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "Detailed Analysis", "", 1, "L", false, 0, "")
	for _, r := range result.Records {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 7, tr(r.Ticker), "", 1, "L", false, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, d := range r.Details {
			pdf.MultiCell(0, 5, tr(d), "", "L", false)
		}

		markers := make([]string, len(r.Conditions))
		for i, o := range r.Conditions {
			markers[i] = pdfMarker(o)
		}
		if r.Passed {
			pdf.SetTextColor(0, 128, 0)
		} else {
			pdf.SetTextColor(178, 34, 34)
		}
		pdf.MultiCell(0, 5, "Results: "+strings.Join(markers, " | "), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
