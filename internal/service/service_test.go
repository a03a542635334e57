package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bubelovv/team-tracker/internal/auth"
	"github.com/bubelovv/team-tracker/internal/domain"
	"github.com/bubelovv/team-tracker/internal/importer"
	"github.com/bubelovv/team-tracker/internal/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	store     *store.Store
	persister *store.MemoryPersister
	seed      func() domain.State
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	imp, err := importer.New(0, nil)
	require.NoError(t, err)

	hasher := auth.NewHasher(bcrypt.MinCost)
	seed := Seed(hasher, AdminAccount{Name: "Admin", Email: adminEmail, Password: adminPassword}, nil)
	p := store.NewMemoryPersister()
	st := store.New(p, nil, store.WithSeed(seed))
	st.Load(context.Background())

	svc := New(st, imp, hasher, nil)
	svc.now = func() time.Time { return fixedNow }

	ids := 0
	svc.newID = func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}
	return fixture{svc: svc, store: st, persister: p, seed: seed}
}

func (f fixture) reload() domain.State {
	st := store.New(f.persister, nil, store.WithSeed(f.seed))
	st.Load(context.Background())
	return st.Snapshot()
}

func (f fixture) adminID(t *testing.T) string {
	t.Helper()
	st := f.svc.Snapshot()
	idx := st.MemberByEmail(adminEmail)
	require.GreaterOrEqual(t, idx, 0)
	return st.Members[idx].ID
}

func jane() MemberInput {
	return MemberInput{Name: "Jane Doe", Email: "jane@x.com", Role: "Developer", Team: "TDM"}
}

func TestAddMemberRecordsActivityAndPersists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before := len(f.svc.ListMembers())

	m, err := f.svc.AddMember(ctx, jane())
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", m.Name)
	require.Len(t, f.svc.ListMembers(), before+1)

	feed := f.svc.ActivityFeed(10)
	require.Len(t, feed, 1)
	require.Equal(t, "added team member", feed[0].Action)
	require.Equal(t, systemActor, feed[0].Actor)
	require.Equal(t, "Jane Doe", feed[0].Detail)

	teams := f.svc.ListTeams()
	snap := f.svc.Snapshot()
	idx := snap.TeamIndex("TDM")
	require.GreaterOrEqual(t, idx, 0)
	require.Equal(t, []string{m.ID}, teams[idx].MemberIDs)

	reloaded := f.reload()
	require.Len(t, reloaded.Members, before+1)
	require.Equal(t, "added team member", reloaded.Activity[0].Action)
}

func TestAddMemberValidationLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	before := f.svc.Snapshot()

	_, err := f.svc.AddMember(ctx, MemberInput{Email: "nobody", Role: "Developer"})
	require.ErrorIs(t, err, domain.ErrValidation)

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.ElementsMatch(t, []string{"name", "email", "team"}, verr.Fields)

	after := f.svc.Snapshot()
	require.Equal(t, before.Members, after.Members)
	require.Empty(t, after.Activity)
}

func TestAddMemberRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)

	in := jane()
	in.Email = "ADMIN@example.com"
	_, err := f.svc.AddMember(context.Background(), in)
	require.ErrorIs(t, err, domain.ErrEmailTaken)
	require.Len(t, f.svc.ListMembers(), 1)
}

func TestUpdateMemberPropagatesNameAndTeam(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m, err := f.svc.AddMember(ctx, jane())
	require.NoError(t, err)
	task, err := f.svc.AddTask(ctx, TaskInput{Title: "Write docs", Team: "TDM", AssigneeID: m.ID})
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", task.Assignee)

	in := jane()
	in.Name = "Jane Smith"
	in.Team = "Platform"
	_, err = f.svc.UpdateMember(ctx, m.ID, in)
	require.NoError(t, err)

	st := f.svc.Snapshot()
	require.Equal(t, "Jane Smith", st.Tasks[st.TaskIndex(task.ID)].Assignee)
	require.Empty(t, st.Teams[st.TeamIndex("TDM")].MemberIDs)
	require.Equal(t, []string{m.ID}, st.Teams[st.TeamIndex("Platform")].MemberIDs)
	require.Equal(t, "updated team member", st.Activity[0].Action)

	_, err = f.svc.UpdateMember(ctx, "missing", in)
	require.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestDeleteMemberKeepsAssignedTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m, err := f.svc.AddMember(ctx, jane())
	require.NoError(t, err)
	task, err := f.svc.AddTask(ctx, TaskInput{Title: "Fix login", Team: "TDM", AssigneeID: m.ID})
	require.NoError(t, err)

	deleted, err := f.svc.DeleteMember(ctx, m.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	st := f.svc.Snapshot()
	require.Negative(t, st.MemberIndex(m.ID))
	require.NotContains(t, st.Teams[st.TeamIndex("TDM")].MemberIDs, m.ID)
	got := st.Tasks[st.TaskIndex(task.ID)]
	require.Equal(t, m.ID, got.AssigneeID)
	require.Equal(t, "Jane Doe", got.Assignee)
	require.Equal(t, "removed team member", st.Activity[0].Action)

	deleted, err = f.svc.DeleteMember(ctx, m.ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestDeleteMemberRefusesSelf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Login(ctx, adminEmail, adminPassword)
	require.NoError(t, err)

	_, err = f.svc.DeleteMember(ctx, f.adminID(t))
	require.ErrorIs(t, err, domain.ErrSelfDelete)
	require.Len(t, f.svc.ListMembers(), 1)
}

func TestTaskAddThenDeleteIsRecordedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task, err := f.svc.AddTask(ctx, TaskInput{Title: "Ship release", Team: "TDM", Status: "In Progress", Priority: "HIGH"})
	require.NoError(t, err)
	require.Equal(t, domain.TaskStatusInProgress, task.Status)
	require.Equal(t, domain.PriorityHigh, task.Priority)
	require.Equal(t, defaultTaskType, task.Type)
	require.NotNil(t, task.StartDate)

	deleted, err := f.svc.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = f.svc.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	st := f.svc.Snapshot()
	require.Empty(t, st.Tasks)
	require.Len(t, st.Activity, 2)
	require.Equal(t, "deleted task", st.Activity[0].Action)
	require.Equal(t, "created task", st.Activity[1].Action)
}

func TestTaskCompletionTimestamp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task, err := f.svc.AddTask(ctx, TaskInput{Title: "Close sprint", Team: "TDM", Status: "done"})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	require.Equal(t, fixedNow, *task.CompletedAt)

	task, err = f.svc.UpdateTask(ctx, task.ID, TaskInput{Title: "Close sprint", Team: "TDM", Status: "in-progress"})
	require.NoError(t, err)
	require.Nil(t, task.CompletedAt)
}

func TestTaskValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.AddTask(ctx, TaskInput{Title: "", Team: "TDM", Status: "sleeping"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.ElementsMatch(t, []string{"title", "status"}, verr.Fields)

	_, err = f.svc.AddTask(ctx, TaskInput{Title: "Orphan", Team: "TDM", AssigneeID: "ghost"})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.UpdateTask(ctx, "missing", TaskInput{Title: "X", Team: "TDM"})
	require.ErrorIs(t, err, domain.ErrTaskNotFound)

	require.Empty(t, f.svc.ListTasks())
	require.Empty(t, f.svc.ActivityFeed(0))
}

func TestUpdateTaskKeepsAssigneeOfDeletedMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	m, err := f.svc.AddMember(ctx, jane())
	require.NoError(t, err)
	task, err := f.svc.AddTask(ctx, TaskInput{Title: "Fix login", Team: "TDM", AssigneeID: m.ID})
	require.NoError(t, err)
	_, err = f.svc.DeleteMember(ctx, m.ID)
	require.NoError(t, err)

	updated, err := f.svc.UpdateTask(ctx, task.ID, TaskInput{Title: "Fix login flow", Team: "TDM", AssigneeID: m.ID})
	require.NoError(t, err)
	require.Equal(t, "Fix login flow", updated.Title)
	require.Equal(t, m.ID, updated.AssigneeID)
	require.Equal(t, "Jane Doe", updated.Assignee)

	_, err = f.svc.UpdateTask(ctx, task.ID, TaskInput{Title: "Fix login flow", Team: "TDM", AssigneeID: "ghost"})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestTaskDoesNotShareCallerPointers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	hours := 3.0
	due := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	task, err := f.svc.AddTask(ctx, TaskInput{Title: "Plan", Team: "TDM", ActualHours: &hours, DueDate: &due})
	require.NoError(t, err)

	hours = 99
	due = due.AddDate(1, 0, 0)
	*task.DueDate = time.Time{}

	st := f.svc.Snapshot()
	stored := st.Tasks[st.TaskIndex(task.ID)]
	require.Equal(t, 3.0, *stored.ActualHours)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *stored.DueDate)
}

func TestTaskFeedbackAndReopen(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	task, err := f.svc.AddTask(ctx, TaskInput{Title: "Release", Team: "TDM", Status: "done", GitLink: " https://git.example.com/pr/1 "})
	require.NoError(t, err)
	require.Equal(t, domain.FeedbackPending, task.Feedback)
	require.Equal(t, "https://git.example.com/pr/1", task.GitLink)
	require.False(t, task.Reopened)

	in := TaskInput{Title: "Release", Team: "TDM", Status: "in-progress", Feedback: "Negative", LeadComments: "regression found"}
	task, err = f.svc.UpdateTask(ctx, task.ID, in)
	require.NoError(t, err)
	require.True(t, task.Reopened)
	require.Equal(t, domain.FeedbackNegative, task.Feedback)
	require.Equal(t, "regression found", task.LeadComments)

	in.Status = "done"
	task, err = f.svc.UpdateTask(ctx, task.ID, in)
	require.NoError(t, err)
	require.True(t, task.Reopened, "reopened stays set after the task is closed again")

	in.Feedback = "ecstatic"
	_, err = f.svc.UpdateTask(ctx, task.ID, in)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []string{"customer_feedback"}, verr.Fields)
}

func TestReloadDoesNotLeakAdminPasswordToOtherMembers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	bob := jane()
	bob.Name = "Bob"
	bob.Email = "bob@x.com"
	_, err := f.svc.AddMember(ctx, bob)
	require.NoError(t, err)
	_, err = f.svc.Signup(ctx, SignupInput{Name: "Sam", Email: "sam@x.com", Password: "secret"})
	require.NoError(t, err)
	_, err = f.svc.DeleteMember(ctx, f.adminID(t))
	require.NoError(t, err)

	imp, err := importer.New(0, nil)
	require.NoError(t, err)
	st := store.New(f.persister, nil, store.WithSeed(f.seed))
	st.Load(ctx)
	reloaded := New(st, imp, auth.NewHasher(bcrypt.MinCost), nil)

	_, err = reloaded.Login(ctx, "bob@x.com", adminPassword)
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = reloaded.Login(ctx, "sam@x.com", "secret")
	require.NoError(t, err)
}

func TestSignupLoginLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sess, err := f.svc.Signup(ctx, SignupInput{Name: "Sam", Email: "sam@x.com", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, DefaultRole, sess.Role)

	current, ok := f.svc.CurrentSession()
	require.True(t, ok)
	require.Equal(t, sess.MemberID, current.MemberID)

	_, err = f.svc.Signup(ctx, SignupInput{Name: "Sam", Email: "sam@x.com", Password: "other"})
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	f.svc.Logout(ctx)
	_, ok = f.svc.CurrentSession()
	require.False(t, ok)

	_, err = f.svc.Login(ctx, "sam@x.com", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "nobody@x.com", "secret")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	sess, err = f.svc.Login(ctx, "sam@x.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "Sam", sess.Name)

	_, err = f.svc.AddTask(ctx, TaskInput{Title: "Logged in work", Team: DefaultTeam})
	require.NoError(t, err)
	require.Equal(t, "Sam", f.svc.ActivityFeed(1)[0].Actor)
}

func TestRetroEntries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.AddRetroEntry(ctx, RetroInput{Category: "sideways", Content: "?"})
	require.ErrorIs(t, err, domain.ErrValidation)

	e, err := f.svc.AddRetroEntry(ctx, RetroInput{Category: "Went Well", Content: "Fast reviews"})
	require.NoError(t, err)
	require.Equal(t, domain.RetroWentWell, e.Category)
	require.Equal(t, systemActor, e.Author)

	e, err = f.svc.UpdateRetroEntry(ctx, e.ID, RetroInput{Category: "concerns", Content: "Flaky CI"})
	require.NoError(t, err)
	require.Equal(t, domain.RetroConcerns, e.Category)

	_, err = f.svc.UpdateRetroEntry(ctx, "missing", RetroInput{Category: "concerns", Content: "x"})
	require.ErrorIs(t, err, domain.ErrRetroNotFound)

	deleted, err := f.svc.DeleteRetroEntry(ctx, e.ID)
	require.NoError(t, err)
	require.True(t, deleted)
	require.Empty(t, f.svc.ListRetro())
}

func TestTeams(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.AddTeam(ctx, "Platform")
	require.NoError(t, err)
	_, err = f.svc.AddTeam(ctx, "Platform")
	require.ErrorIs(t, err, domain.ErrTeamExists)

	_, err = f.svc.DeleteTeam(ctx, AdminTeam)
	require.ErrorIs(t, err, domain.ErrTeamNotEmpty)

	deleted, err := f.svc.DeleteTeam(ctx, "Platform")
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestUpdateSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.UpdateSettings(ctx, domain.Settings{Theme: "purple", RefreshIntervalSeconds: 5})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	require.ElementsMatch(t, []string{"theme", "refresh_interval_seconds"}, verr.Fields)

	got, err := f.svc.UpdateSettings(ctx, domain.Settings{Theme: "Dark", RefreshIntervalSeconds: 30})
	require.NoError(t, err)
	require.Equal(t, "dark", got.Theme)
	require.Equal(t, "dark", f.reload().Settings.Theme)
}

func TestUpdateEmailConfigRequiresFieldsWhenEnabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.UpdateEmailConfig(ctx, domain.EmailConfig{Enabled: true})
	require.ErrorIs(t, err, domain.ErrValidation)

	cfg, err := f.svc.UpdateEmailConfig(ctx, domain.EmailConfig{SMTPHost: "smtp.x.com", SMTPPort: 587})
	require.NoError(t, err)
	require.NotNil(t, cfg.Recipients)
	require.Equal(t, "smtp.x.com", f.svc.Integrations().Email.SMTPHost)
}

func TestImportTasksIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.ImportTasks(ctx)
	require.ErrorIs(t, err, domain.ErrNotConfigured)
	require.Empty(t, f.svc.ListTasks())

	_, err = f.svc.UpdateTrackerConfig(ctx, domain.TrackerConfig{
		BaseURL:    "https://tracker.example.com",
		Username:   "bot",
		APIKey:     "key",
		ProjectKey: "web",
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.TestTrackerConnection(ctx))

	first, err := f.svc.ImportTasks(ctx)
	require.NoError(t, err)
	require.Positive(t, first.Imported)
	require.Zero(t, first.Skipped)

	second, err := f.svc.ImportTasks(ctx)
	require.NoError(t, err)
	require.Zero(t, second.Imported)
	require.Equal(t, first.Imported, second.Skipped)

	tasks := f.svc.ListTasks()
	require.Len(t, tasks, first.Imported)
	require.Equal(t, "WEB-101", tasks[0].ExternalID)

	tracker := f.svc.Integrations().Tracker
	require.NotNil(t, tracker.LastImportAt)
	require.Equal(t, fixedNow, *tracker.LastImportAt)
	require.Equal(t, "imported tasks", f.svc.ActivityFeed(1)[0].Action)
}

func TestImportTasksHonoursContext(t *testing.T) {
	f := newFixture(t)
	slow, err := importer.New(time.Second, nil)
	require.NoError(t, err)
	f.svc.tracker = slow

	_, err = f.svc.UpdateTrackerConfig(context.Background(), domain.TrackerConfig{BaseURL: "https://t", Username: "u", APIKey: "k"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = f.svc.ImportTasks(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, f.svc.ListTasks())
}
