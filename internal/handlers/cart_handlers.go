package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linuxfriends/recoverysystem-golang/internal/models"
)

//
// --- Cart flow: guest-friendly checkout keyed by the order's public
// reference instead of its numeric ID ---
//

// CartCheckout is the handler for POST /api/cart/checkout (public, optionally
// authenticated). Same contract as POST /api/orders/products.
func (h *Handlers) CartCheckout(c *gin.Context) {
	var input ProductOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cart is empty or malformed: " + err.Error()})
		return
	}
	h.placeProductOrder(c, input)
}

// loadOrderByReference fetches an order by its public UUID reference.
func (h *Handlers) loadOrderByReference(reference string) (*models.Order, error) {
	row := h.DB.QueryRow("SELECT "+orderColumns+" FROM orders WHERE reference = ?", reference)
	return scanOrderRow(row.Scan)
}

// cartOrderForbidden reports whether the caller may not touch this order: the
// order is account-linked and the presented identity (if any) doesn't match.
func cartOrderForbidden(c *gin.Context, order *models.Order) bool {
	caller := callerID(c)
	return order.Client.UserID != nil && caller != nil && *caller != *order.Client.UserID
}

// GetCartOrderStatus is the handler for GET /api/cart/order/:orderId.
func (h *Handlers) GetCartOrderStatus(c *gin.Context) {
	order, err := h.loadOrderByReference(c.Param("orderId"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get order status"})
		return
	}

	if cartOrderForbidden(c, order) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to access this order"})
		return
	}

	items, err := h.fetchOrderItems(order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch order items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"status":        order.Status,
			"paymentStatus": order.PaymentStatus,
			"totalAmount":   order.TotalAmount,
			"items":         items,
			"client": gin.H{
				"name":     order.Client.Name,
				"email":    order.Client.Email,
				"phone":    order.Client.Phone,
				"location": order.Client.Location,
			},
		},
	})
}

type CartPaymentInput struct {
	PaymentMethod string `json:"paymentMethod" binding:"required,oneof=cash mobile_money bank_transfer"`
}

// PayCartOrder is the handler for POST /api/cart/order/:orderId/payment.
// Payment is simulated: a valid method marks the order paid and moves it to
// processing in the same write.
func (h *Handlers) PayCartOrder(c *gin.Context) {
	var input CartPaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payment method"})
		return
	}

	order, err := h.loadOrderByReference(c.Param("orderId"))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch order"})
		return
	}

	if cartOrderForbidden(c, order) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Not authorized to update this order"})
		return
	}

	// Marking the order paid forces it into processing as one combined write.
	_, err = h.DB.Exec("UPDATE orders SET payment_status = 'paid', status = 'processing', payment_method = ?, updated_at = ? WHERE id = ?",
		input.PaymentMethod, time.Now(), order.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to process payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment processed successfully",
		"data": gin.H{
			"status":        models.StatusProcessing,
			"paymentStatus": models.PaymentPaid,
			"paymentMethod": input.PaymentMethod,
		},
	})
}
