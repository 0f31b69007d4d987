package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linuxfriends/recoverysystem-golang/internal/models"
)

type CourseInput struct {
	Name           string    `json:"name" binding:"required,max=100"`
	Description    string    `json:"description" binding:"required"`
	Level          string    `json:"level" binding:"required,oneof=beginner intermediate advanced"`
	Category       string    `json:"category" binding:"required"`
	Price          float64   `json:"price" binding:"gte=0"`
	StartDate      time.Time `json:"startDate" binding:"required"`
	EndDate        time.Time `json:"endDate" binding:"required"`
	MaxStudents    int       `json:"maxStudents" binding:"required,gt=0"`
	CourseMaterial *string   `json:"courseMaterial"`
}

const courseColumns = `c.id, c.name, c.description, c.level, c.category, c.price,
	c.start_date, c.end_date, c.max_students, c.course_material, c.created_at, c.updated_at`

func scanCourseRow(scan func(dest ...interface{}) error) (*models.Course, error) {
	var course models.Course
	err := scan(&course.ID, &course.Name, &course.Description, &course.Level, &course.Category,
		&course.Price, &course.StartDate, &course.EndDate, &course.MaxStudents,
		&course.CourseMaterial, &course.CreatedAt, &course.UpdatedAt, &course.EnrolledCount)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// CreateCourse is the handler for POST /api/courses (admin).
func (h *Handlers) CreateCourse(c *gin.Context) {
	var input CourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if !input.EndDate.After(input.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "End date must be after start date"})
		return
	}

	var existingID int64
	err := h.DB.QueryRow("SELECT id FROM courses WHERE name = ?", input.Name).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A course with this name already exists"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to check course name"})
		return
	}

	now := time.Now()
	query := `
		INSERT INTO courses (name, description, level, category, price, start_date,
			end_date, max_students, course_material, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := h.DB.Exec(query, input.Name, input.Description, input.Level, input.Category,
		input.Price, input.StartDate, input.EndDate, input.MaxStudents, input.CourseMaterial, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create course"})
		return
	}
	courseID, _ := result.LastInsertId()

	course := &models.Course{
		ID:             courseID,
		Name:           input.Name,
		Description:    input.Description,
		Level:          input.Level,
		Category:       input.Category,
		Price:          input.Price,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		MaxStudents:    input.MaxStudents,
		CourseMaterial: input.CourseMaterial,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": course})
}

// GetCourses is the handler for GET /api/courses (public).
func (h *Handlers) GetCourses(c *gin.Context) {
	query := `
		SELECT ` + courseColumns + `,
			(SELECT COUNT(*) FROM course_enrollments ce WHERE ce.course_id = c.id) AS enrolled_count
		FROM courses c
		ORDER BY c.start_date ASC`
	rows, err := h.DB.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch courses"})
		return
	}
	defer rows.Close()

	courses := []*models.Course{}
	for rows.Next() {
		course, err := scanCourseRow(rows.Scan)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to scan course"})
			return
		}
		courses = append(courses, course)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": courses})
}

// GetCourse is the handler for GET /api/courses/:id (public).
func (h *Handlers) GetCourse(c *gin.Context) {
	query := `
		SELECT ` + courseColumns + `,
			(SELECT COUNT(*) FROM course_enrollments ce WHERE ce.course_id = c.id) AS enrolled_count
		FROM courses c
		WHERE c.id = ?`
	row := h.DB.QueryRow(query, c.Param("id"))
	course, err := scanCourseRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch course"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": course})
}

// UpdateCourse is the handler for PUT /api/courses/:id (admin).
func (h *Handlers) UpdateCourse(c *gin.Context) {
	var input CourseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	// The capacity can never be lowered below the current enrollment count.
	var enrolled int
	err := h.DB.QueryRow("SELECT COUNT(*) FROM course_enrollments WHERE course_id = ?", c.Param("id")).Scan(&enrolled)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to check enrollments"})
		return
	}
	if input.MaxStudents < enrolled {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "maxStudents cannot be lower than current enrollment"})
		return
	}

	query := `
		UPDATE courses
		SET name = ?, description = ?, level = ?, category = ?, price = ?,
			start_date = ?, end_date = ?, max_students = ?, course_material = ?, updated_at = ?
		WHERE id = ?`
	result, err := h.DB.Exec(query, input.Name, input.Description, input.Level, input.Category,
		input.Price, input.StartDate, input.EndDate, input.MaxStudents, input.CourseMaterial,
		time.Now(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update course"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"id": c.Param("id")}})
}

// DeleteCourse is the handler for DELETE /api/courses/:id (admin).
// Courses with enrolled students cannot be deleted.
func (h *Handlers) DeleteCourse(c *gin.Context) {
	var enrolled int
	err := h.DB.QueryRow("SELECT COUNT(*) FROM course_enrollments WHERE course_id = ?", c.Param("id")).Scan(&enrolled)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to check enrollments"})
		return
	}
	if enrolled > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cannot delete course with enrolled students"})
		return
	}

	result, err := h.DB.Exec("DELETE FROM courses WHERE id = ?", c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete course"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

// EnrollCourse is the handler for POST /api/courses/:id/enroll (authenticated).
// Enrollment is capacity-checked and idempotent: the course row is locked for
// the duration, and the unique (course_id, user_id) key backs up the
// duplicate check.
func (h *Handlers) EnrollCourse(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	tx, err := h.DB.BeginTx(c, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var maxStudents int
	err = tx.QueryRow("SELECT max_students FROM courses WHERE id = ? FOR UPDATE", c.Param("id")).Scan(&maxStudents)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch course"})
		return
	}

	var enrolled int
	if err := tx.QueryRow("SELECT COUNT(*) FROM course_enrollments WHERE course_id = ?", c.Param("id")).Scan(&enrolled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to count enrollments"})
		return
	}
	if enrolled >= maxStudents {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Course is full"})
		return
	}

	var existingID int64
	err = tx.QueryRow("SELECT id FROM course_enrollments WHERE course_id = ? AND user_id = ?", c.Param("id"), userID).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Already enrolled"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to check enrollment"})
		return
	}

	_, err = tx.Exec("INSERT INTO course_enrollments (course_id, user_id, created_at) VALUES (?, ?, ?)",
		c.Param("id"), userID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to enroll"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to commit enrollment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"courseId": c.Param("id"), "enrolled": enrolled + 1},
	})
}

// GetEnrolledCourses is the handler for GET /api/courses/enrolled
// (authenticated). The enrollment set is the source of truth; the latest
// matching order contributes its status as audit information.
func (h *Handlers) GetEnrolledCourses(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	query := `
		SELECT ` + courseColumns + `,
			(SELECT COUNT(*) FROM course_enrollments ce2 WHERE ce2.course_id = c.id) AS enrolled_count,
			ce.created_at AS enrolled_at,
			(SELECT o.status FROM orders o
				JOIN order_items oi ON oi.order_id = o.id
				WHERE oi.course_id = c.id AND o.user_id = ce.user_id
				ORDER BY o.created_at DESC LIMIT 1) AS order_status
		FROM course_enrollments ce
		JOIN courses c ON c.id = ce.course_id
		WHERE ce.user_id = ?
		ORDER BY ce.created_at DESC`

	rows, err := h.DB.Query(query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch enrolled courses"})
		return
	}
	defer rows.Close()

	type enrolledCourse struct {
		*models.Course
		EnrolledAt  time.Time `json:"enrolledAt"`
		OrderStatus *string   `json:"orderStatus,omitempty"`
	}

	courses := []enrolledCourse{}
	for rows.Next() {
		var course models.Course
		var entry enrolledCourse
		err := rows.Scan(&course.ID, &course.Name, &course.Description, &course.Level, &course.Category,
			&course.Price, &course.StartDate, &course.EndDate, &course.MaxStudents,
			&course.CourseMaterial, &course.CreatedAt, &course.UpdatedAt, &course.EnrolledCount,
			&entry.EnrolledAt, &entry.OrderStatus)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to scan enrolled course"})
			return
		}
		entry.Course = &course
		courses = append(courses, entry)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(courses), "data": courses})
}
