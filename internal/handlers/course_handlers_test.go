package handlers

import (
	"database/sql"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const courseCapacityLockQuery = `SELECT max_students FROM courses WHERE id = \? FOR UPDATE`

func TestCreateCourse_EndBeforeStart(t *testing.T) {
	h, mock := newTestHandlers(t)

	body := `{
		"name": "Solar Install Basics", "description": "Intro course",
		"level": "beginner", "category": "installation", "price": 150,
		"startDate": "2026-10-01T09:00:00Z", "endDate": "2026-09-01T09:00:00Z",
		"maxStudents": 20
	}`
	c, w := newTestContext(t, http.MethodPost, body, nil)
	h.CreateCourse(c)

	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, w.Body.String(), "End date must be after start date")
	requireAllExpectationsMet(t, mock)
}

func TestCreateCourse_DuplicateName(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(`SELECT id FROM courses WHERE name = \?`).
		WithArgs("Solar Install Basics").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	body := `{
		"name": "Solar Install Basics", "description": "Intro course",
		"level": "beginner", "category": "installation", "price": 150,
		"startDate": "2026-09-01T09:00:00Z", "endDate": "2026-10-01T09:00:00Z",
		"maxStudents": 20
	}`
	c, w := newTestContext(t, http.MethodPost, body, nil)
	h.CreateCourse(c)

	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, w.Body.String(), "already exists")
	requireAllExpectationsMet(t, mock)
}

func TestEnrollCourse(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(courseCapacityLockQuery).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"max_students"}).AddRow(20))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM course_enrollments WHERE course_id = \?`).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(`SELECT id FROM course_enrollments WHERE course_id = \? AND user_id = \?`).
		WithArgs("3", int64(7)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO course_enrollments`).
		WithArgs("3", int64(7), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, w := newTestContext(t, http.MethodPost, "", []gin.Param{{Key: "id", Value: "3"}})
	asAuthenticated(c, 7)
	h.EnrollCourse(c)

	requireStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), `"enrolled":5`)
	requireAllExpectationsMet(t, mock)
}

func TestEnrollCourse_Full(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(courseCapacityLockQuery).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"max_students"}).AddRow(5))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM course_enrollments WHERE course_id = \?`).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectRollback()

	c, w := newTestContext(t, http.MethodPost, "", []gin.Param{{Key: "id", Value: "3"}})
	asAuthenticated(c, 7)
	h.EnrollCourse(c)

	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, w.Body.String(), "Course is full")
	requireAllExpectationsMet(t, mock)
}

func TestEnrollCourse_AlreadyEnrolled(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(courseCapacityLockQuery).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"max_students"}).AddRow(20))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM course_enrollments WHERE course_id = \?`).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectQuery(`SELECT id FROM course_enrollments WHERE course_id = \? AND user_id = \?`).
		WithArgs("3", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(88))
	mock.ExpectRollback()

	c, w := newTestContext(t, http.MethodPost, "", []gin.Param{{Key: "id", Value: "3"}})
	asAuthenticated(c, 7)
	h.EnrollCourse(c)

	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, w.Body.String(), "Already enrolled")
	requireAllExpectationsMet(t, mock)
}

func TestUpdateCourse_CapacityBelowEnrollment(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM course_enrollments WHERE course_id = \?`).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	body := `{
		"name": "Solar Install Basics", "description": "Intro course",
		"level": "beginner", "category": "installation", "price": 150,
		"startDate": "2026-09-01T09:00:00Z", "endDate": "2026-10-01T09:00:00Z",
		"maxStudents": 10
	}`
	c, w := newTestContext(t, http.MethodPut, body, []gin.Param{{Key: "id", Value: "3"}})
	h.UpdateCourse(c)

	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, w.Body.String(), "cannot be lower than current enrollment")
	requireAllExpectationsMet(t, mock)
}

func TestDeleteCourse_WithEnrollments(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM course_enrollments WHERE course_id = \?`).
		WithArgs("3").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	c, w := newTestContext(t, http.MethodDelete, "", []gin.Param{{Key: "id", Value: "3"}})
	h.DeleteCourse(c)

	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, w.Body.String(), "Cannot delete course with enrolled students")
	requireAllExpectationsMet(t, mock)
}
