package todos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studybuddy/internal/identity"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var ada = identity.Identity{UserID: "11111111-1111-4111-8111-111111111111", Username: "ada"}

func TestFormatStudyTime(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "0s"},
		{59, "59s"},
		{60, "00:01"},
		{119, "00:01"},
		{3599, "00:59"},
		{3600, "01:00"},
		{3660, "01:01"},
		{36000 + 1800, "10:30"},
		{100 * 3600, "100:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatStudyTime(tt.seconds), "%d seconds", tt.seconds)
	}
}

func ptr[T any](v T) *T { return &v }

func TestGroupTodos(t *testing.T) {
	todos := []Todo{
		{ID: 1, Text: "loose"},
		{ID: 2, Text: "a1", GroupID: ptr(int64(10))},
		{ID: 3, Text: "b1", GroupID: ptr(int64(20))},
		{ID: 4, Text: "a2", GroupID: ptr(int64(10))},
		{ID: 5, Text: "dangling", GroupID: ptr(int64(99))},
	}
	groups := []Group{{ID: 10, Title: "A"}, {ID: 20, Title: "B"}, {ID: 30, Title: "empty"}}

	out := groupTodos(todos, groups)

	require.Len(t, out.Groups, 3)
	assert.Equal(t, []int64{2, 4}, todoIDs(out.Groups[0].Subtasks))
	assert.Equal(t, []int64{3}, todoIDs(out.Groups[1].Subtasks))
	assert.NotNil(t, out.Groups[2].Subtasks)
	assert.Empty(t, out.Groups[2].Subtasks)
	assert.Equal(t, []int64{1, 5}, todoIDs(out.Tasks))
}

func todoIDs(ts []Todo) []int64 {
	out := make([]int64, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

// memRepo keeps one user's data; ownership is checked through userID
type memRepo struct {
	todos  []Todo
	groups []Group
	owner  map[int64]string
	from   time.Time
	to     time.Time
}

func newMemRepo() *memRepo { return &memRepo{owner: map[int64]string{}} }

func (r *memRepo) ListTodos(ctx context.Context, userID string) ([]Todo, error) {
	return append([]Todo{}, r.todos...), nil
}

func (r *memRepo) ListGroups(ctx context.Context, userID string) ([]Group, error) {
	return append([]Group{}, r.groups...), nil
}

func (r *memRepo) OwnsGroup(ctx context.Context, userID string, groupID int64) (bool, error) {
	return r.owner[groupID] == userID, nil
}

func (r *memRepo) CreateTodo(ctx context.Context, userID string, in CreateTodoRequest) (*Todo, error) {
	t := Todo{ID: int64(len(r.todos) + 1), Text: in.Text, Link: in.Link, GroupID: in.GroupID}
	r.todos = append(r.todos, t)
	return &t, nil
}

func (r *memRepo) ToggleTodo(ctx context.Context, userID string, id int64) (*Todo, error) {
	for i := range r.todos {
		if r.todos[i].ID == id {
			r.todos[i].IsDone = !r.todos[i].IsDone
			t := r.todos[i]
			return &t, nil
		}
	}
	return nil, ErrTodoNotFound
}

func (r *memRepo) DeleteTodo(ctx context.Context, userID string, id int64) error {
	for i := range r.todos {
		if r.todos[i].ID == id {
			r.todos = append(r.todos[:i], r.todos[i+1:]...)
			return nil
		}
	}
	return ErrTodoNotFound
}

func (r *memRepo) CreateGroup(ctx context.Context, userID, title string, taskIDs []int64) (*Group, error) {
	g := Group{ID: int64(len(r.groups) + 100), Title: title, Subtasks: []Todo{}}
	for i := range r.todos {
		for _, id := range taskIDs {
			if r.todos[i].ID == id {
				r.todos[i].GroupID = &g.ID
				g.Subtasks = append(g.Subtasks, r.todos[i])
			}
		}
	}
	if len(g.Subtasks) == 0 {
		return nil, ErrNoTasks
	}
	r.groups = append(r.groups, g)
	r.owner[g.ID] = userID
	return &g, nil
}

func (r *memRepo) DeleteGroup(ctx context.Context, userID string, id int64) error {
	if r.owner[id] != userID {
		return ErrGroupNotFound
	}
	kept := r.todos[:0]
	for _, t := range r.todos {
		if t.GroupID == nil || *t.GroupID != id {
			kept = append(kept, t)
		}
	}
	r.todos = kept
	for i, g := range r.groups {
		if g.ID == id {
			r.groups = append(r.groups[:i], r.groups[i+1:]...)
			break
		}
	}
	delete(r.owner, id)
	return nil
}

func (r *memRepo) AddStudyTime(ctx context.Context, userID string, date time.Time, seconds int) (*StudySession, error) {
	return &StudySession{ID: 1, Date: date.Format(DateLayout), TimeSpent: seconds}, nil
}

func (r *memRepo) DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]DailyTotal, error) {
	r.from, r.to = from, to
	return []DailyTotal{{Date: "2026-10-01", Seconds: 3720, Formatted: FormatStudyTime(3720)}}, nil
}

func TestService_TodoLifecycle(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, ada, CreateTodoRequest{Text: "   "})
	assert.ErrorIs(t, err, ErrTextRequired)
	_, err = svc.Create(ctx, identity.Identity{}, CreateTodoRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	a, err := svc.Create(ctx, ada, CreateTodoRequest{Text: " read ch. 4 ", Link: ptr("  ")})
	require.NoError(t, err)
	assert.Equal(t, "read ch. 4", a.Text)
	assert.Nil(t, a.Link)
	b, err := svc.Create(ctx, ada, CreateTodoRequest{Text: "problem set", Link: ptr("https://example.com")})
	require.NoError(t, err)

	_, err = svc.CreateGroup(ctx, ada, CreateGroupRequest{Title: "Week 1"})
	assert.ErrorIs(t, err, ErrNoTasks)
	_, err = svc.CreateGroup(ctx, ada, CreateGroupRequest{Title: " ", TaskIDs: []int64{a.ID}})
	assert.ErrorIs(t, err, ErrTitleRequired)

	g, err := svc.CreateGroup(ctx, ada, CreateGroupRequest{Title: "Week 1", TaskIDs: []int64{a.ID, b.ID}})
	require.NoError(t, err)
	assert.Len(t, g.Subtasks, 2)

	_, err = svc.Create(ctx, ada, CreateTodoRequest{Text: "c", GroupID: ptr(int64(999))})
	assert.ErrorIs(t, err, ErrGroupNotFound)

	toggled, err := svc.Toggle(ctx, ada, a.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsDone)

	over, err := svc.Overview(ctx, ada)
	require.NoError(t, err)
	assert.Empty(t, over.Tasks)
	require.Len(t, over.Groups, 1)
	assert.Len(t, over.Groups[0].Subtasks, 2)

	require.NoError(t, svc.DeleteGroup(ctx, ada, g.ID))
	over, err = svc.Overview(ctx, ada)
	require.NoError(t, err)
	assert.Empty(t, over.Tasks)
	assert.Empty(t, over.Groups)
}

func TestService_StudyTimes(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo).(*service)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 15, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	_, err := svc.AddStudyTime(ctx, ada, AddStudyTimeRequest{Date: "16/10/2026", TimeSpent: 60})
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = svc.AddStudyTime(ctx, ada, AddStudyTimeRequest{Date: "2026-10-16", TimeSpent: 0})
	assert.ErrorIs(t, err, ErrInvalidDuration)
	s, err := svc.AddStudyTime(ctx, ada, AddStudyTimeRequest{Date: "2026-10-16", TimeSpent: 1500})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", s.Date)

	_, err = svc.StudyTimes(ctx, ada, "", "")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", repo.to.Format(DateLayout))
	assert.Equal(t, "2025-10-16", repo.from.Format(DateLayout))

	_, err = svc.StudyTimes(ctx, ada, "2026-10-10", "2026-10-01")
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = svc.StudyTimes(ctx, ada, "yesterday", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestRouter(t *testing.T) {
	r := SetupRouter(NewService(newMemRepo()), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, path, body string, who *identity.Identity) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if who != nil {
			identity.Apply(req.Header, *who)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, send(http.MethodGet, "/todos", "", nil).Code)

	w := send(http.MethodPost, "/todos", `{"text":"flashcards"}`, &ada)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(http.MethodPatch, "/todos/1/toggle", "", &ada)
	require.Equal(t, http.StatusOK, w.Code)
	var todo Todo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &todo))
	assert.True(t, todo.IsDone)

	assert.Equal(t, http.StatusNotFound, send(http.MethodPatch, "/todos/9/toggle", "", &ada).Code)
	assert.Equal(t, http.StatusCreated, send(http.MethodPost, "/todos/groups", `{"title":"G","task_ids":[1]}`, &ada).Code)
	assert.Equal(t, http.StatusNoContent, send(http.MethodDelete, "/todos/groups/100", "", &ada).Code)
	assert.Equal(t, http.StatusNotFound, send(http.MethodDelete, "/todos/1", "", &ada).Code)

	w = send(http.MethodGet, "/study-times?from=2026-10-01&to=2026-10-31", "", &ada)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"formatted":"01:02"`)
	assert.Equal(t, http.StatusBadRequest, send(http.MethodPost, "/study-times", `{"date":"2026-10-16","time_spent":-5}`, &ada).Code)
}
