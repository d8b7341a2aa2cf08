// Package export writes finished job results to spreadsheet artifacts.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enrichment/internal/model"
)

// Exporter produces a downloadable artifact for a completed job and
// returns a reference to it.
type Exporter interface {
	Export(ctx context.Context, job *model.Job, results []model.LeadResult) (string, error)
}

// XLSXExporter writes one workbook per job into a target directory.
type XLSXExporter struct {
	dir string
}

func NewXLSX(dir string) *XLSXExporter {
	return &XLSXExporter{dir: dir}
}

var resultHeader = []string{
	"Name", "Email", "Domain", "Company", "Industry", "Score", "Risk Flags", "Enriched At",
}

// Export writes every lead result to a single sheet and returns the
// file path. The directory is created on first use.
func (e *XLSXExporter) Export(ctx context.Context, job *model.Job, results []model.LeadResult) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", eris.Wrap(err, "export: cancelled")
	}
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", eris.Wrap(err, "export: create directory")
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Results")
	if err != nil {
		return "", eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range resultHeader {
		header.AddCell().SetString(h)
	}

	for _, r := range results {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Name)
		row.AddCell().SetString(r.Email)
		row.AddCell().SetString(r.Domain)
		row.AddCell().SetString(r.CompanyName)
		row.AddCell().SetString(r.Industry)
		row.AddCell().SetInt(r.Score)
		row.AddCell().SetString(strings.Join(r.RiskFlags, "; "))
		row.AddCell().SetString(r.CreatedAt.Format(time.RFC3339))
	}

	path := filepath.Join(e.dir, artifactName(job.ID, time.Now().UTC()))
	if err := file.Save(path); err != nil {
		return "", eris.Wrap(err, "export: save workbook")
	}

	zap.L().Info("exported job results",
		zap.String("job_id", job.ID),
		zap.Int("results", len(results)),
		zap.String("path", path))
	return path, nil
}

func artifactName(jobID string, ts time.Time) string {
	short := jobID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("results_%s_%s.xlsx", short, ts.Format("20060102T150405"))
}
