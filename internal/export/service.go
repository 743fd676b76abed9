package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/entity"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
)

const (
	rewritesSheet = "Rewrites"
	runSheet      = "Run"
)

// RunReader is the slice of the run repository the export needs.
type RunReader interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	ListRewrites(ctx context.Context, runID uuid.UUID) ([]*entity.RunRewrite, error)
}

// Service produces XLSX rewrite reports.
type Service struct {
	runs   RunReader
	logger *slog.Logger
}

func NewService(runs RunReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runs: runs, logger: logger}
}

type reportRow struct {
	id        fragment.Identity
	category  constants.Category
	original  string
	rewritten string
}

// ExportRunXLSX returns the report of a persisted run: a Run summary sheet and
// one Rewrites row per planned rewrite.
func (s *Service) ExportRunXLSX(ctx context.Context, runID uuid.UUID) ([]byte, error) {
	start := time.Now()
	if s.runs == nil {
		return nil, fmt.Errorf("export: no run history configured")
	}
	run, err := s.runs.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	rws, err := s.runs.ListRewrites(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("query rewrites: %w", err)
	}

	rows := make([]reportRow, 0, len(rws))
	for _, rw := range rws {
		id, err := fragment.ParseKey(rw.FragmentKey)
		if err != nil {
			s.logger.Warn("export.xlsx.bad_key", "run_id", runID, "key", rw.FragmentKey, "error", err)
			continue
		}
		rows = append(rows, reportRow{id: id, category: rw.Category, original: rw.Original, rewritten: rw.Rewritten})
	}

	buf, err := buildWorkbook(run, rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"run_id", runID.String(),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf, nil
}

// WriteRewritesXLSX renders rewrites that were never persisted, e.g. from a
// run without history.
func (s *Service) WriteRewritesXLSX(rewrites []fragment.Rewrite) ([]byte, error) {
	rows := make([]reportRow, len(rewrites))
	for i, rw := range rewrites {
		rows[i] = reportRow{id: rw.ID, category: rw.Category, original: rw.Original, rewritten: rw.Text}
	}
	buf, err := buildWorkbook(nil, rows)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "rows", len(rows))
	return buf, nil
}

func buildWorkbook(run *entity.Run, rows []reportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet becomes Rewrites so it opens first
	if err := f.SetSheetName(f.GetSheetName(0), rewritesSheet); err != nil {
		return nil, err
	}

	headers := []string{
		"Slide",
		"Shape",
		"Group Child",
		"Row",
		"Col",
		"Category",
		"Original",
		"Rewritten",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(rewritesSheet, cell, h)
	}

	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(rewritesSheet, cell, v)
		}
		// slide and shape are 1-based for humans
		write(1, r.id.Slide+1)
		write(2, r.id.Shape+1)
		write(3, optCell(r.id.GroupChild))
		write(4, optCell(r.id.Row))
		write(5, optCell(r.id.Col))
		write(6, string(r.category))
		write(7, truncate(r.original, 32000))
		write(8, truncate(r.rewritten, 32000))
	}

	_ = f.SetColWidth(rewritesSheet, "A", "E", 10)
	_ = f.SetColWidth(rewritesSheet, "F", "F", 16)
	_ = f.SetColWidth(rewritesSheet, "G", "H", 60)
	_ = f.SetPanes(rewritesSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	if run != nil {
		if err := writeRunSheet(f, run); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRunSheet(f *excelize.File, run *entity.Run) error {
	if _, err := f.NewSheet(runSheet); err != nil {
		return err
	}
	finished := ""
	if run.FinishedAt != nil {
		finished = run.FinishedAt.UTC().Format(time.RFC3339)
	}
	errMsg := ""
	if run.ErrorMessage != nil {
		errMsg = *run.ErrorMessage
	}
	pairs := [][2]any{
		{"Run ID", run.ID.String()},
		{"Source", run.Source},
		{"Status", string(run.Status)},
		{"Fragments", run.Fragments},
		{"Local Classified", run.LocalClassified},
		{"Remote Classified", run.RemoteClassified},
		{"Fallback", run.Fallback},
		{"Dropped Items", run.DroppedItems},
		{"Planned", run.Planned},
		{"Applied", run.Applied},
		{"Error", errMsg},
		{"Started", run.StartedAt.UTC().Format(time.RFC3339)},
		{"Finished", finished},
	}
	for i, p := range pairs {
		_ = f.SetCellValue(runSheet, fmt.Sprintf("A%d", i+1), p[0])
		_ = f.SetCellValue(runSheet, fmt.Sprintf("B%d", i+1), p[1])
	}
	_ = f.SetColWidth(runSheet, "A", "A", 20)
	_ = f.SetColWidth(runSheet, "B", "B", 48)
	return nil
}

// optCell renders absent coordinates as empty cells and present ones 1-based.
func optCell(o fragment.Opt) any {
	if !o.Set {
		return ""
	}
	return o.Value + 1
}

// truncate keeps cells under the XLSX per-cell limit.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
