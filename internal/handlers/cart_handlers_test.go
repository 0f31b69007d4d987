package handlers

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

const cartRef = "6f1e8a3c-0b2d-4f5a-9c7e-1d2b3a4c5e6f"

// cartOrderRows builds one orders row for the reference lookup. userID may be
// nil for guest orders.
func cartOrderRows(userID interface{}) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "reference", "order_type", "client_name", "client_email",
		"client_phone", "client_location", "user_id", "total_amount", "preferred_start_date",
		"preferred_end_date", "status", "payment_status", "payment_method", "created_at", "updated_at"}).
		AddRow(42, cartRef, "product", "Jane Doe", "jane@example.com",
			"+237600000001", "Douala", userID, 400.0, nil,
			nil, "pending", "pending", nil, now, now)
}

func TestGetCartOrderStatus(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(`FROM orders WHERE reference = \?`).
		WithArgs(cartRef).
		WillReturnRows(cartOrderRows(nil))
	mock.ExpectQuery(`FROM order_items oi`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "product_id", "service_id", "course_id",
			"quantity", "unit_price", "created_at", "item_name"}).
			AddRow(1, 42, 1, nil, nil, 2, 200.0, time.Now(), "Mono Panel 300W"))

	c, w := newTestContext(t, http.MethodGet, "", []gin.Param{{Key: "orderId", Value: cartRef}})
	h.GetCartOrderStatus(c)

	requireStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), `"status":"pending"`)
	assert.Contains(t, w.Body.String(), "Mono Panel 300W")
	requireAllExpectationsMet(t, mock)
}

func TestGetCartOrderStatus_NotFound(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(`FROM orders WHERE reference = \?`).
		WithArgs("missing-ref").
		WillReturnError(sql.ErrNoRows)

	c, w := newTestContext(t, http.MethodGet, "", []gin.Param{{Key: "orderId", Value: "missing-ref"}})
	h.GetCartOrderStatus(c)

	requireStatus(t, w, http.StatusNotFound)
	requireAllExpectationsMet(t, mock)
}

func TestGetCartOrderStatus_WrongUser(t *testing.T) {
	h, mock := newTestHandlers(t)

	// The order belongs to user 7; user 9 may not read it.
	mock.ExpectQuery(`FROM orders WHERE reference = \?`).
		WithArgs(cartRef).
		WillReturnRows(cartOrderRows(int64(7)))

	c, w := newTestContext(t, http.MethodGet, "", []gin.Param{{Key: "orderId", Value: cartRef}})
	asAuthenticated(c, 9)
	h.GetCartOrderStatus(c)

	requireStatus(t, w, http.StatusForbidden)
	requireAllExpectationsMet(t, mock)
}

func TestPayCartOrder(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(`FROM orders WHERE reference = \?`).
		WithArgs(cartRef).
		WillReturnRows(cartOrderRows(nil))
	mock.ExpectExec(`UPDATE orders SET payment_status = 'paid', status = 'processing', payment_method = \?, updated_at = \? WHERE id = \?`).
		WithArgs("mobile_money", sqlmock.AnyArg(), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, w := newTestContext(t, http.MethodPost, `{"paymentMethod": "mobile_money"}`,
		[]gin.Param{{Key: "orderId", Value: cartRef}})
	h.PayCartOrder(c)

	requireStatus(t, w, http.StatusOK)
	assert.Contains(t, w.Body.String(), `"paymentStatus":"paid"`)
	assert.Contains(t, w.Body.String(), `"status":"processing"`)
	requireAllExpectationsMet(t, mock)
}

func TestPayCartOrder_InvalidMethod(t *testing.T) {
	h, mock := newTestHandlers(t)

	c, w := newTestContext(t, http.MethodPost, `{"paymentMethod": "crypto"}`,
		[]gin.Param{{Key: "orderId", Value: cartRef}})
	h.PayCartOrder(c)

	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, w.Body.String(), "Invalid payment method")
	requireAllExpectationsMet(t, mock)
}

func TestPayCartOrder_WrongUser(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(`FROM orders WHERE reference = \?`).
		WithArgs(cartRef).
		WillReturnRows(cartOrderRows(int64(7)))

	c, w := newTestContext(t, http.MethodPost, `{"paymentMethod": "cash"}`,
		[]gin.Param{{Key: "orderId", Value: cartRef}})
	asAuthenticated(c, 9)
	h.PayCartOrder(c)

	requireStatus(t, w, http.StatusForbidden)
	requireAllExpectationsMet(t, mock)
}
