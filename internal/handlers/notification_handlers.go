package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//
// --- Low-stock notifications ---
//
// When a stock movement leaves a product at or below its configured
// threshold, a notification row is written in the same transaction. The
// table is the hand-off point for whatever restock/alerting system consumes
// these; nothing in this repo sends email or pushes.
//

// Notification is the model for the 'notifications' table.
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	Type      string    `json:"type" db:"type"`
	ProductID *int64    `json:"productId,omitempty" db:"product_id"`
	Message   string    `json:"message" db:"message"`
	IsRead    bool      `json:"isRead" db:"is_read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// addLowStockNotification records a low-stock signal inside the caller's
// transaction, so the alert and the stock movement commit or roll back
// together.
func (h *Handlers) addLowStockNotification(tx *sql.Tx, productID interface{}, productName string, stock int) error {
	message := fmt.Sprintf("Low stock alert: %s is down to %d units", productName, stock)
	_, err := tx.Exec("INSERT INTO notifications (type, product_id, message, is_read, created_at) VALUES ('low_stock', ?, ?, FALSE, ?)",
		productID, message, time.Now())
	return err
}

// GetNotifications is the handler for GET /api/notifications (admin).
func (h *Handlers) GetNotifications(c *gin.Context) {
	rows, err := h.DB.Query("SELECT id, type, product_id, message, is_read, created_at FROM notifications ORDER BY is_read ASC, created_at DESC")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch notifications"})
		return
	}
	defer rows.Close()

	notifications := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Type, &n.ProductID, &n.Message, &n.IsRead, &n.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to scan notification"})
			return
		}
		notifications = append(notifications, n)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": notifications})
}

// MarkNotificationAsRead is the handler for PATCH /api/notifications/:id/read
// (admin).
func (h *Handlers) MarkNotificationAsRead(c *gin.Context) {
	result, err := h.DB.Exec("UPDATE notifications SET is_read = TRUE WHERE id = ?", c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update notification"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}
