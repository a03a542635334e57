package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseTaskStatusAcceptsVariantSpellings(t *testing.T) {
	tests := map[string]TaskStatus{
		"todo":        TaskStatusNotStarted,
		"Not Started": TaskStatusNotStarted,
		"In Progress": TaskStatusInProgress,
		"in_progress": TaskStatusInProgress,
		"Testing":     TaskStatusInReview,
		"In Review":   TaskStatusInReview,
		"Blocked":     TaskStatusBlocked,
		"Done":        TaskStatusDone,
		"completed":   TaskStatusDone,
	}
	for raw, want := range tests {
		got, ok := ParseTaskStatus(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got, raw)
	}

	_, ok := ParseTaskStatus("archived")
	require.False(t, ok)
}

func TestNormalizeRepairsPartialSnapshot(t *testing.T) {
	st := State{
		Members: []Member{
			{ID: "m1", Name: "Alice", Team: "Data Platform"},
			{ID: "m2", Name: "Bob", Team: "Data Platform"},
		},
		Teams: []Team{{Name: "Data Platform", MemberIDs: []string{"gone"}}},
		Tasks: []Task{
			{ID: "t1", Status: "Testing", Priority: "urgent", Feedback: "Positive"},
			{ID: "t2", Status: "done", Priority: "low", Feedback: "thrilled"},
			{ID: "t3", Status: "done", Priority: "low"},
		},
		Retro: []RetroEntry{
			{ID: "r1", Category: "What Went Well"},
			{ID: "r2", Category: "misc"},
		},
	}
	for i := 0; i < 60; i++ {
		st.Activity = append(st.Activity, Activity{ID: "a"})
	}

	st.Normalize(50)

	require.Equal(t, StateVersion, st.Version)
	require.Len(t, st.Activity, 50)
	require.Equal(t, []string{"m1", "m2"}, st.Teams[0].MemberIDs)
	require.Equal(t, TaskStatusInReview, st.Tasks[0].Status)
	require.Equal(t, PriorityMedium, st.Tasks[0].Priority)
	require.Equal(t, FeedbackPositive, st.Tasks[0].Feedback)
	require.Equal(t, FeedbackPending, st.Tasks[1].Feedback)
	require.Empty(t, st.Tasks[2].Feedback)
	require.Len(t, st.Retro, 1)
	require.Equal(t, RetroWentWell, st.Retro[0].Category)
	require.NotNil(t, st.Integrations.Email.Recipients)
	require.Equal(t, DefaultTheme, st.Settings.Theme)
}

func TestRebuildRostersCreatesMissingTeams(t *testing.T) {
	st := NewState()
	st.Members = []Member{{ID: "m1", Team: "AI/ML"}}

	st.RebuildRosters()

	require.Len(t, st.Teams, 1)
	require.Equal(t, "AI/ML", st.Teams[0].Name)
	require.Equal(t, []string{"m1"}, st.Teams[0].MemberIDs)
}

func TestCloneDoesNotShareMemory(t *testing.T) {
	due := time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC)
	st := NewState()
	st.Teams = []Team{{Name: "TDM", MemberIDs: []string{"m1"}}}
	st.Tasks = []Task{{ID: "t1", DueDate: &due}}

	cp := st.Clone()
	cp.Teams[0].MemberIDs[0] = "changed"
	*cp.Tasks[0].DueDate = due.AddDate(0, 0, 1)
	cp.Tasks[0].Title = "changed"

	require.Equal(t, "m1", st.Teams[0].MemberIDs[0])
	require.True(t, st.Tasks[0].DueDate.Equal(due))
	require.Empty(t, st.Tasks[0].Title)
}

func TestFieldsErr(t *testing.T) {
	var fields Fields
	require.NoError(t, fields.Err())

	fields.Require("title", "  ")
	fields.Require("team", "TDM")
	err := fields.Err()

	require.True(t, errors.Is(err, ErrValidation))
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"title"}, verr.Fields)
}
