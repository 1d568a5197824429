// Package report exports a learner's path progress as an xlsx workbook for
// tutors and coordinators.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/lernio/pathway/internal/path"
	"github.com/lernio/pathway/internal/progress"
)

const sheetName = "Progress"

// WriteXLSX writes a per-topic progress workbook. One row per topic with
// gate state, lesson counts, and quiz score, followed by a summary block
// with overall completion and the final score when the path is done.
func WriteXLSX(w io.Writer, p *path.Path, rec progress.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", sheetName)

	headers := []string{"Topic", "Name", "State", "Lessons Completed", "Quiz Score"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for ordinal, topic := range p.Topics {
		tp := rec.Topic(ordinal)
		state := progress.Gate(rec, ordinal, len(topic.Lessons), p.TopicCount())

		row := ordinal + 2
		cells := []any{
			ordinal + 1,
			topic.Name,
			state.String(),
			fmt.Sprintf("%d/%d", tp.LessonCount(), len(topic.Lessons)),
			quizScoreCell(tp),
		}
		for col, v := range cells {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("topic cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("write topic row: %w", err)
			}
		}
	}

	summaryRow := p.TopicCount() + 3
	percent := progress.OverallPercent(rec, p.TopicCount())
	if err := f.SetCellValue(sheetName, cellAt(1, summaryRow), "Overall"); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := f.SetCellValue(sheetName, cellAt(2, summaryRow), fmt.Sprintf("%.0f%%", percent)); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	if progress.IsPathComplete(rec, p.TopicCount()) {
		final, ok := progress.FinalScore(rec)
		if ok {
			if err := f.SetCellValue(sheetName, cellAt(1, summaryRow+1), "Final Score"); err != nil {
				return fmt.Errorf("write final score: %w", err)
			}
			if err := f.SetCellValue(sheetName, cellAt(2, summaryRow+1), final); err != nil {
				return fmt.Errorf("write final score: %w", err)
			}
		}
	}

	if err := f.SetColWidth(sheetName, "B", "B", 32); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func quizScoreCell(tp progress.TopicProgress) any {
	if tp.QuizScore <= 0 {
		return "-"
	}
	return tp.QuizScore
}

// cellAt is CoordinatesToCellName for coordinates we know are valid.
func cellAt(col, row int) string {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	return cell
}
