package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const slotPriceQuery = `SELECT price, stock_quantity FROM products WHERE id = \?`

const serviceBody = `{
	"description": "3kW home installation",
	"panel":      {"productId": 1, "quantity": 2},
	"battery":    {"productId": 2, "quantity": 1},
	"controller": {"productId": 3, "quantity": 1},
	"cable":      {"productId": 4, "quantity": 5},
	"laborCost": 500,
	"installationDate": "2026-09-15T08:00:00Z",
	"estimatedDuration": "2 days"
}`

func expectSlotPrice(mock sqlmock.Sqlmock, productID int64, price float64, stock int) {
	mock.ExpectQuery(slotPriceQuery).
		WithArgs(productID).
		WillReturnRows(sqlmock.NewRows([]string{"price", "stock_quantity"}).AddRow(price, stock))
}

func TestCreateService(t *testing.T) {
	h, mock := newTestHandlers(t)

	// panel 200x2 + battery 300x1 + controller 150x1 + cable 10x5 = 900
	// products, plus 500 labor = 1400 total.
	mock.ExpectBegin()
	expectSlotPrice(mock, 1, 200.0, 10)
	expectSlotPrice(mock, 2, 300.0, 4)
	expectSlotPrice(mock, 3, 150.0, 6)
	expectSlotPrice(mock, 4, 10.0, 50)
	mock.ExpectExec(`INSERT INTO services`).
		WithArgs("3kW home installation",
			int64(1), 2, int64(2), 1, int64(3), 1, int64(4), 5,
			500.0, 1400.0, sqlmock.AnyArg(), "2 days",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(6, 1))
	mock.ExpectCommit()

	c, w := newTestContext(t, http.MethodPost, serviceBody, nil)
	h.CreateService(c)

	requireStatus(t, w, http.StatusCreated)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			TotalCost float64 `json:"totalCost"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1400.0, resp.Data.TotalCost)

	requireAllExpectationsMet(t, mock)
}

func TestCreateService_SlotProductNotFound(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectBegin()
	expectSlotPrice(mock, 1, 200.0, 10)
	mock.ExpectQuery(slotPriceQuery).
		WithArgs(int64(2)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, w := newTestContext(t, http.MethodPost, serviceBody, nil)
	h.CreateService(c)

	requireStatus(t, w, http.StatusNotFound)
	assert.Contains(t, w.Body.String(), "battery product not found")
	requireAllExpectationsMet(t, mock)
}

func TestCreateService_InsufficientSlotStock(t *testing.T) {
	h, mock := newTestHandlers(t)

	// Cable slot wants 5 but only 3 remain.
	mock.ExpectBegin()
	expectSlotPrice(mock, 1, 200.0, 10)
	expectSlotPrice(mock, 2, 300.0, 4)
	expectSlotPrice(mock, 3, 150.0, 6)
	expectSlotPrice(mock, 4, 10.0, 3)
	mock.ExpectRollback()

	c, w := newTestContext(t, http.MethodPost, serviceBody, nil)
	h.CreateService(c)

	requireStatus(t, w, http.StatusBadRequest)
	assert.Contains(t, w.Body.String(), "Insufficient quantity for cable")
	requireAllExpectationsMet(t, mock)
}

func TestRequestService(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(`SELECT total_cost FROM services WHERE id = \?`).
		WithArgs("6").
		WillReturnRows(sqlmock.NewRows([]string{"total_cost"}).AddRow(1400.0))
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).
		WithArgs(sqlmock.AnyArg(), "Jane Doe", "jane@example.com", "+237600000001", "Douala",
			nil, 1400.0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(60, 1))
	mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(int64(60), "6", 1400.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	body := `{
		"name": "Jane Doe", "email": "jane@example.com",
		"phone": "+237600000001", "location": "Douala",
		"startDate": "2026-09-20T08:00:00Z", "endDate": "2026-09-22T18:00:00Z"
	}`
	c, w := newTestContext(t, http.MethodPost, body, []gin.Param{{Key: "id", Value: "6"}})
	h.RequestService(c)

	requireStatus(t, w, http.StatusCreated)
	assert.Contains(t, w.Body.String(), `"totalAmount":1400`)
	requireAllExpectationsMet(t, mock)
}

func TestRequestService_NotFound(t *testing.T) {
	h, mock := newTestHandlers(t)

	mock.ExpectQuery(`SELECT total_cost FROM services WHERE id = \?`).
		WithArgs("99").
		WillReturnError(sql.ErrNoRows)

	body := `{
		"name": "Jane Doe", "email": "jane@example.com",
		"phone": "+237600000001", "location": "Douala",
		"startDate": "2026-09-20T08:00:00Z", "endDate": "2026-09-22T18:00:00Z"
	}`
	c, w := newTestContext(t, http.MethodPost, body, []gin.Param{{Key: "id", Value: "99"}})
	h.RequestService(c)

	requireStatus(t, w, http.StatusNotFound)
	requireAllExpectationsMet(t, mock)
}
