// Package report renders learner progress as an XLSX workbook.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-learn/internal/learning"
)

// Sheet names in the generated workbook.
const (
	SummarySheet = "Summary"
	ScoresSheet  = "Scores"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var courseHeader = []any{"Course", "Enrolled", "Level", "Assessed", "Completed modules", "Attempts", "Best score", "Weak topics"}

// WriteProgress writes a two-sheet workbook: an overview with one row per
// course, and every recorded score in attempt order.
func WriteProgress(w io.Writer, sum *learning.ProgressSummary) error {
	if sum == nil {
		return fmt.Errorf("progress summary is nil")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(ScoresSheet); err != nil {
		return fmt.Errorf("creating scores sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating style: %w", err)
	}

	rows := [][]any{
		{"Name", sum.Name},
		{"Email", sum.Email},
		{"Enrolled courses", sum.EnrolledCourses},
		{"Completed modules", sum.CompletedModules},
		{"Weak topics", strings.Join(sum.TopicsWeak, ", ")},
		{},
		courseHeader,
	}
	for _, c := range sum.Courses {
		best := ""
		if len(c.Scores) > 0 {
			best = fmt.Sprint(slices.Max(c.Scores))
		}
		rows = append(rows, []any{
			c.Course,
			yesNo(c.Enrolled),
			c.Level.Title(),
			yesNo(c.Assessed),
			strings.Join(c.CompletedModules, ", "),
			len(c.Scores),
			best,
			strings.Join(c.WeakTopics, ", "),
		})
	}
	if err := writeRows(f, SummarySheet, rows); err != nil {
		return err
	}
	headerRow := len(rows) - len(sum.Courses)
	if err := styleRow(f, SummarySheet, headerRow, len(courseHeader), bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 20); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "E", "H", 30); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}

	scores := [][]any{{"Course", "Attempt", "Score"}}
	for _, c := range sum.Courses {
		for i, s := range c.Scores {
			scores = append(scores, []any{c.Course, i + 1, s})
		}
	}
	if err := writeRows(f, ScoresSheet, scores); err != nil {
		return err
	}
	if err := styleRow(f, ScoresSheet, 1, 3, bold); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func styleRow(f *excelize.File, sheet string, row, cols, style int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(cols, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, first, last, style)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
