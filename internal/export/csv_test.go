package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestWriteTasksCSVQuotesEveryField(t *testing.T) {
	due := time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC)
	tasks := []domain.Task{{
		ID:             "t1",
		ExternalID:     "DE-1001",
		Title:          `Say "hi", world`,
		Description:    "line one\nline two",
		Assignee:       "Alice Johnson",
		Team:           "Data Platform",
		Status:         domain.TaskStatusInProgress,
		Priority:       domain.PriorityHigh,
		EstimatedHours: 24,
		DueDate:        &due,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteTasksCSV(&buf, tasks))

	firstLine := strings.SplitN(buf.String(), "\n", 2)[0]
	require.True(t, strings.HasPrefix(firstLine, `"ID","External ID","Title"`))
	require.Contains(t, buf.String(), `"Say ""hi"", world"`)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, `Say "hi", world`, records[1][2])
	require.Equal(t, "line one\nline two", records[1][3])
	require.Equal(t, "24", records[1][8])
	require.Equal(t, "2024-12-28", records[1][9])
}

func TestWriteTasksCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTasksCSV(&buf, nil))

	require.Equal(t, 1, strings.Count(buf.String(), "\n"))
}
