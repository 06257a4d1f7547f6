package todos

import "time"

type Todo struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Link      *string   `json:"link,omitempty"`
	GroupID   *int64    `json:"group_id,omitempty"`
	IsDone    bool      `json:"is_done"`
	CreatedAt time.Time `json:"created_at"`
}

// Group bundles to-dos under a title
type Group struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Subtasks  []Todo    `json:"subtasks"`
}

// Overview is the to-do page: ungrouped tasks plus every group
type Overview struct {
	Tasks  []Todo  `json:"tasks"`
	Groups []Group `json:"groups"`
}

type CreateTodoRequest struct {
	Text    string  `json:"text"`
	Link    *string `json:"link"`
	GroupID *int64  `json:"group_id"`
}

type CreateGroupRequest struct {
	Title   string  `json:"title"`
	TaskIDs []int64 `json:"task_ids"`
}

// StudySession is one recorded stretch of study
type StudySession struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	TimeSpent int       `json:"time_spent"`
	CreatedAt time.Time `json:"created_at"`
}

type AddStudyTimeRequest struct {
	Date      string `json:"date"`
	TimeSpent int    `json:"time_spent"`
}

// DailyTotal is the study time summed over one date
type DailyTotal struct {
	Date      string `json:"date"`
	Seconds   int64  `json:"seconds"`
	Formatted string `json:"formatted"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
