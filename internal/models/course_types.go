package models

import "time"

// Course levels.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// Course is the model for the 'courses' table.
type Course struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	Level          string    `json:"level" db:"level"`
	Category       string    `json:"category" db:"category"`
	Price          float64   `json:"price" db:"price"`
	StartDate      time.Time `json:"startDate" db:"start_date"`
	EndDate        time.Time `json:"endDate" db:"end_date"`
	MaxStudents    int       `json:"maxStudents" db:"max_students"`
	CourseMaterial *string   `json:"courseMaterial,omitempty" db:"course_material"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`

	// Populated from course_enrollments, not a column.
	EnrolledCount int `json:"enrolledCount" db:"-"`
}

// Enrollment is one row of the 'course_enrollments' set. The unique
// (course_id, user_id) key in the schema is what enforces set semantics.
type Enrollment struct {
	ID        int64     `json:"id" db:"id"`
	CourseID  int64     `json:"courseId" db:"course_id"`
	UserID    int64     `json:"userId" db:"user_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
