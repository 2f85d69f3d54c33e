package models

import "encoding/json"

// Lesson is a taught course instance owned by one teacher and offered to one
// or more classes.
type Lesson struct {
	ID         int64  `json:"id"`
	Thumbnail  string `json:"thumbnail"`
	Title      string `json:"title"`
	TeacherID  string `json:"teacher_id"`
	Year       int    `json:"year"`
	Term       int    `json:"term"`
	IsOver     bool   `json:"is_over"`
	Notice     string `json:"notice"`
	Courseware string `json:"courseware"`
}

// LessonBrief is the list-view projection of a lesson.
type LessonBrief struct {
	ID        int64  `json:"id"`
	Thumbnail string `json:"thumbnail"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Term      int    `json:"term"`
	IsOver    bool   `json:"is_over"`
}

// Brief returns the list-view projection.
func (l *Lesson) Brief() LessonBrief {
	return LessonBrief{
		ID:        l.ID,
		Thumbnail: l.Thumbnail,
		Title:     l.Title,
		Year:      l.Year,
		Term:      l.Term,
		IsOver:    l.IsOver,
	}
}

// LessonRecord is an archived classroom session: the full event sequence at
// class end, stored as an opaque blob. Immutable after creation.
type LessonRecord struct {
	ID         int64           `json:"id"`
	LessonID   int64           `json:"lesson_id"`
	ArchivedAt int64           `json:"time"`
	Data       json.RawMessage `json:"data"`
}
