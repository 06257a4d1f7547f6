// Package todos keeps each user's personal to-do list and study time log
package todos

import (
	"context"
	"errors"
	"strings"
	"time"

	"studybuddy/internal/identity"
)

var (
	ErrUnauthenticated = errors.New("you must be logged in")
	ErrTextRequired    = errors.New("task text is required")
	ErrTitleRequired   = errors.New("group title is required")
	ErrNoTasks         = errors.New("select at least one of your tasks")
	ErrTodoNotFound    = errors.New("task not found")
	ErrGroupNotFound   = errors.New("task group not found")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrInvalidDuration = errors.New("time_spent must be a positive number of seconds")
	ErrInvalidRange    = errors.New("from must not be after to")
)

// defaultRange is how far back StudyTimes looks without a from date
const defaultRange = 365 * 24 * time.Hour

type Service interface {
	Overview(ctx context.Context, who identity.Identity) (*Overview, error)
	Create(ctx context.Context, who identity.Identity, req CreateTodoRequest) (*Todo, error)
	Toggle(ctx context.Context, who identity.Identity, id int64) (*Todo, error)
	Delete(ctx context.Context, who identity.Identity, id int64) error
	CreateGroup(ctx context.Context, who identity.Identity, req CreateGroupRequest) (*Group, error)
	DeleteGroup(ctx context.Context, who identity.Identity, id int64) error

	AddStudyTime(ctx context.Context, who identity.Identity, req AddStudyTimeRequest) (*StudySession, error)
	// StudyTimes returns daily totals between two YYYY-MM-DD dates, both optional
	StudyTimes(ctx context.Context, who identity.Identity, from, to string) ([]DailyTotal, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) Overview(ctx context.Context, who identity.Identity) (*Overview, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	todos, err := s.repo.ListTodos(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	groups, err := s.repo.ListGroups(ctx, who.UserID)
	if err != nil {
		return nil, err
	}
	return groupTodos(todos, groups), nil
}

// groupTodos files every to-do under its group, keeping list order. To-dos
// pointing at an unknown group are shown ungrouped.
func groupTodos(todos []Todo, groups []Group) *Overview {
	out := &Overview{Tasks: []Todo{}, Groups: make([]Group, len(groups))}
	index := make(map[int64]int, len(groups))
	for i, g := range groups {
		g.Subtasks = []Todo{}
		out.Groups[i] = g
		index[g.ID] = i
	}
	for _, t := range todos {
		if t.GroupID != nil {
			if i, ok := index[*t.GroupID]; ok {
				out.Groups[i].Subtasks = append(out.Groups[i].Subtasks, t)
				continue
			}
		}
		out.Tasks = append(out.Tasks, t)
	}
	return out
}

func (s *service) Create(ctx context.Context, who identity.Identity, req CreateTodoRequest) (*Todo, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return nil, ErrTextRequired
	}
	if req.Link != nil {
		link := strings.TrimSpace(*req.Link)
		req.Link = &link
		if link == "" {
			req.Link = nil
		}
	}
	if req.GroupID != nil {
		ok, err := s.repo.OwnsGroup(ctx, who.UserID, *req.GroupID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrGroupNotFound
		}
	}
	return s.repo.CreateTodo(ctx, who.UserID, req)
}

func (s *service) Toggle(ctx context.Context, who identity.Identity, id int64) (*Todo, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	return s.repo.ToggleTodo(ctx, who.UserID, id)
}

func (s *service) Delete(ctx context.Context, who identity.Identity, id int64) error {
	if !who.Authenticated() {
		return ErrUnauthenticated
	}
	return s.repo.DeleteTodo(ctx, who.UserID, id)
}

func (s *service) CreateGroup(ctx context.Context, who identity.Identity, req CreateGroupRequest) (*Group, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if len(req.TaskIDs) == 0 {
		return nil, ErrNoTasks
	}
	return s.repo.CreateGroup(ctx, who.UserID, title, req.TaskIDs)
}

// DeleteGroup removes the group together with its subtasks
func (s *service) DeleteGroup(ctx context.Context, who identity.Identity, id int64) error {
	if !who.Authenticated() {
		return ErrUnauthenticated
	}
	return s.repo.DeleteGroup(ctx, who.UserID, id)
}

func (s *service) AddStudyTime(ctx context.Context, who identity.Identity, req AddStudyTimeRequest) (*StudySession, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}
	date, err := time.Parse(DateLayout, req.Date)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if req.TimeSpent <= 0 {
		return nil, ErrInvalidDuration
	}
	return s.repo.AddStudyTime(ctx, who.UserID, date, req.TimeSpent)
}

func (s *service) StudyTimes(ctx context.Context, who identity.Identity, from, to string) ([]DailyTotal, error) {
	if !who.Authenticated() {
		return nil, ErrUnauthenticated
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	end := today
	if to != "" {
		t, err := time.Parse(DateLayout, to)
		if err != nil {
			return nil, ErrInvalidDate
		}
		end = t
	}
	start := end.Add(-defaultRange)
	if from != "" {
		f, err := time.Parse(DateLayout, from)
		if err != nil {
			return nil, ErrInvalidDate
		}
		start = f
	}
	if start.After(end) {
		return nil, ErrInvalidRange
	}
	return s.repo.DailyTotals(ctx, who.UserID, start, end)
}
