// Package export writes tasks as delimited text for download.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bubelovv/team-tracker/internal/domain"
)

var taskHeader = []string{
	"ID", "External ID", "Title", "Description", "Assignee", "Team",
	"Status", "Priority", "Estimated Hours", "Due Date", "Blocker",
}

// WriteTasksCSV writes a header row and one row per task. Every field is
// double-quoted and embedded quotes are doubled.
func WriteTasksCSV(w io.Writer, tasks []domain.Task) error {
	bw := bufio.NewWriter(w)
	if err := writeRow(bw, taskHeader); err != nil {
		return err
	}
	for _, t := range tasks {
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format(time.DateOnly)
		}
		row := []string{
			t.ID,
			t.ExternalID,
			t.Title,
			t.Description,
			t.Assignee,
			t.Team,
			string(t.Status),
			string(t.Priority),
			strconv.FormatFloat(t.EstimatedHours, 'f', -1, 64),
			due,
			t.Blocker,
		}
		if err := writeRow(bw, row); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func writeRow(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
		}
		if _, err := w.WriteString(`"` + strings.ReplaceAll(f, `"`, `""`) + `"`); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	if err := w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
