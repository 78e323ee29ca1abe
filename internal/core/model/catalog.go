package model

// Project is a selectable project.
type Project struct {
	ID   int64
	Name string
}

// Task is a selectable task of a project.
type Task struct {
	ID        int64
	ProjectID int64
	Name      string
}

// Tag is a selectable timesheet tag.
type Tag struct {
	ID    int64
	Name  string
	Color int
}

// Favorite is a saved selection that can be applied to a new timer.
type Favorite struct {
	ID          int64
	Description string
	ProjectID   int64
	ProjectName string
	TaskID      int64
	TaskName    string
	TagIDs      []int64
	TagNames    []string
	UseCount    int
}
