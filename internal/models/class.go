package models

// Major is a field of study that classes belong to.
type Major struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Class is a student cohort within a major.
type Class struct {
	ID      int64  `json:"id"`
	Grade   int    `json:"grade"`
	MajorID int64  `json:"major_id"`
	Name    string `json:"name"`
}

// Option is a global key/value setting, e.g. the current semester.
type Option struct {
	ID    int64  `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}
