package models

// Task statuses, per student. Submissions after the deadline become expired;
// checked submissions are immutable.
const (
	TaskStatusUncompleted = "uncompleted"
	TaskStatusCompleted   = "completed"
	TaskStatusExpired     = "expired"
	TaskStatusChecked     = "checked"
)

// Task is an assignment attached to a lesson.
type Task struct {
	ID          int64  `json:"id"`
	LessonID    int64  `json:"lesson_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_time"`
	Deadline    int64  `json:"deadline"`
}

// TaskStatus tracks one student's progress on one task.
type TaskStatus struct {
	ID        int64  `json:"id"`
	StudentID string `json:"student_id"`
	TaskID    int64  `json:"task_id"`
	Status    string `json:"status"`
	Text      string `json:"text"`
	Files     string `json:"files"`
	Score     int    `json:"score"`
}

// TaskWithLesson joins a task with its lesson title for list views.
type TaskWithLesson struct {
	Task
	LessonTitle string `json:"lesson_title"`
}
