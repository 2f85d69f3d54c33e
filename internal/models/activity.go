package models

// Activity is one entry in a user's notification feed, scoped to the role it
// was addressed to. Writes are fire-and-forget side effects of lesson events.
type Activity struct {
	ID        int64  `json:"id"`
	LessonID  int64  `json:"lesson_id"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"created_time"`
	Scope     Role   `json:"scope"`
	UserID    string `json:"user_id"`
}

// ActivityWithLesson joins an activity with its lesson title for feed views.
type ActivityWithLesson struct {
	Activity
	LessonTitle string `json:"lesson_title"`
}
