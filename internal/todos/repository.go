package todos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"studybuddy/internal/database"
)

// Repository scopes every query to one user
type Repository interface {
	ListTodos(ctx context.Context, userID string) ([]Todo, error)
	ListGroups(ctx context.Context, userID string) ([]Group, error)
	OwnsGroup(ctx context.Context, userID string, groupID int64) (bool, error)
	CreateTodo(ctx context.Context, userID string, in CreateTodoRequest) (*Todo, error)
	ToggleTodo(ctx context.Context, userID string, id int64) (*Todo, error)
	DeleteTodo(ctx context.Context, userID string, id int64) error
	// CreateGroup inserts the group and moves the user's listed tasks into it
	// in one transaction
	CreateGroup(ctx context.Context, userID, title string, taskIDs []int64) (*Group, error)
	DeleteGroup(ctx context.Context, userID string, id int64) error

	AddStudyTime(ctx context.Context, userID string, date time.Time, seconds int) (*StudySession, error)
	// DailyTotals sums study time per date within [from, to]
	DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]DailyTotal, error)
}

type pgRepository struct {
	db database.Service
}

func NewRepository(db database.Service) Repository {
	return &pgRepository{db: db}
}

const todoColumns = `id, text, link, group_id, is_done, created_at`

func scanTodo(row pgx.Row) (*Todo, error) {
	var t Todo
	if err := row.Scan(&t.ID, &t.Text, &t.Link, &t.GroupID, &t.IsDone, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *pgRepository) ListTodos(ctx context.Context, userID string) ([]Todo, error) {
	rows, err := r.db.Query(ctx, `SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	out := []Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *pgRepository) ListGroups(ctx context.Context, userID string) ([]Group, error) {
	rows, err := r.db.Query(ctx, `SELECT id, title, created_at FROM todo_groups WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list todo groups: %w", err)
	}
	defer rows.Close()

	out := []Group{}
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.ID, &g.Title, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan todo group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *pgRepository) OwnsGroup(ctx context.Context, userID string, groupID int64) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM todo_groups WHERE id = $1 AND user_id = $2)`, groupID, userID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check todo group: %w", err)
	}
	return ok, nil
}

func (r *pgRepository) CreateTodo(ctx context.Context, userID string, in CreateTodoRequest) (*Todo, error) {
	q := `INSERT INTO todos (user_id, text, link, group_id) VALUES ($1, $2, $3, $4) RETURNING ` + todoColumns
	t, err := scanTodo(r.db.QueryRow(ctx, q, userID, in.Text, in.Link, in.GroupID))
	if err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return t, nil
}

func (r *pgRepository) ToggleTodo(ctx context.Context, userID string, id int64) (*Todo, error) {
	q := `UPDATE todos SET is_done = NOT is_done WHERE id = $1 AND user_id = $2 RETURNING ` + todoColumns
	t, err := scanTodo(r.db.QueryRow(ctx, q, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTodoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("toggle todo: %w", err)
	}
	return t, nil
}

func (r *pgRepository) DeleteTodo(ctx context.Context, userID string, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTodoNotFound
	}
	return nil
}

func (r *pgRepository) CreateGroup(ctx context.Context, userID, title string, taskIDs []int64) (*Group, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g := Group{Title: title}
	err = tx.QueryRow(ctx, `INSERT INTO todo_groups (user_id, title) VALUES ($1, $2) RETURNING id, created_at`, userID, title).
		Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create todo group: %w", err)
	}

	rows, err := tx.Query(ctx, `
		UPDATE todos SET group_id = $1
		WHERE id = ANY($2) AND user_id = $3
		RETURNING `+todoColumns, g.ID, taskIDs, userID)
	if err != nil {
		return nil, fmt.Errorf("move todos: %w", err)
	}
	g.Subtasks = []Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		g.Subtasks = append(g.Subtasks, *t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("move todos: %w", err)
	}
	if len(g.Subtasks) == 0 {
		return nil, ErrNoTasks
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &g, nil
}

func (r *pgRepository) DeleteGroup(ctx context.Context, userID string, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM todo_groups WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete todo group: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGroupNotFound
	}
	return nil
}

func (r *pgRepository) AddStudyTime(ctx context.Context, userID string, date time.Time, seconds int) (*StudySession, error) {
	var s StudySession
	var d time.Time
	err := r.db.QueryRow(ctx, `
		INSERT INTO study_times (user_id, date, time_spent) VALUES ($1, $2, $3)
		RETURNING id, date, time_spent, created_at`, userID, date, seconds).
		Scan(&s.ID, &d, &s.TimeSpent, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add study time: %w", err)
	}
	s.Date = d.Format(DateLayout)
	return &s, nil
}

func (r *pgRepository) DailyTotals(ctx context.Context, userID string, from, to time.Time) ([]DailyTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date, SUM(time_spent)
		FROM study_times
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		GROUP BY date
		ORDER BY date`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum study times: %w", err)
	}
	defer rows.Close()

	out := []DailyTotal{}
	for rows.Next() {
		var d time.Time
		var total DailyTotal
		if err := rows.Scan(&d, &total.Seconds); err != nil {
			return nil, fmt.Errorf("scan study total: %w", err)
		}
		total.Date = d.Format(DateLayout)
		total.Formatted = FormatStudyTime(total.Seconds)
		out = append(out, total)
	}
	return out, rows.Err()
}
