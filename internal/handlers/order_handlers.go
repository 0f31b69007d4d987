package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/linuxfriends/recoverysystem-golang/internal/models"
)

// --- Shared order plumbing ---

const orderColumns = `id, reference, order_type, client_name, client_email, client_phone,
	client_location, user_id, total_amount, preferred_start_date, preferred_end_date,
	status, payment_status, payment_method, created_at, updated_at`

func scanOrderRow(scan func(dest ...interface{}) error) (*models.Order, error) {
	var o models.Order
	var startDate, endDate sql.NullTime

	err := scan(&o.ID, &o.Reference, &o.OrderType, &o.Client.Name, &o.Client.Email,
		&o.Client.Phone, &o.Client.Location, &o.Client.UserID, &o.TotalAmount,
		&startDate, &endDate, &o.Status, &o.PaymentStatus, &o.PaymentMethod,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if startDate.Valid && endDate.Valid {
		o.PreferredDates = &models.PreferredDates{StartDate: startDate.Time, EndDate: endDate.Time}
	}
	return &o, nil
}

// fetchOrderItems loads an order's line items with the referenced entity's
// name joined in.
func (h *Handlers) fetchOrderItems(orderID int64) ([]models.OrderItem, error) {
	query := `
		SELECT oi.id, oi.order_id, oi.product_id, oi.service_id, oi.course_id,
			oi.quantity, oi.unit_price, oi.created_at,
			COALESCE(p.name, s.name, c.name) AS item_name
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		LEFT JOIN services s ON oi.service_id = s.id
		LEFT JOIN courses c ON oi.course_id = c.id
		WHERE oi.order_id = ?`

	rows, err := h.DB.Query(query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ServiceID, &item.CourseID,
			&item.Quantity, &item.UnitPrice, &item.CreatedAt, &item.Name)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// --- Product checkout ---

type OrderItemInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gte=1"`
}

type ProductOrderInput struct {
	ClientInput
	Items []OrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// placeProductOrder runs the whole product checkout inside one transaction:
// lock the product rows, validate stock, write the order and its items, then
// decrement stock with a conditional update that refuses to go negative. Any
// failure rolls the entire order back, so stock and the order ledger can
// never disagree. Shared by POST /api/orders/products and /api/cart/checkout.
func (h *Handlers) placeProductOrder(c *gin.Context, input ProductOrderInput) {
	client, complete := h.resolveClient(callerID(c), input.ClientInput)
	if !complete {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide all required information: name, email, phone, and location"})
		return
	}

	tx, err := h.DB.BeginTx(c, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	type pricedItem struct {
		ProductID int64
		Name      string
		Quantity  int
		UnitPrice float64
		Stock     int
		Threshold int
	}

	var totalAmount float64
	pricedItems := make([]pricedItem, 0, len(input.Items))

	for _, item := range input.Items {
		var priced pricedItem
		// Lock the row so concurrent checkouts serialize on each product.
		err := tx.QueryRow("SELECT id, name, price, stock_quantity, low_stock_threshold FROM products WHERE id = ? FOR UPDATE", item.ProductID).
			Scan(&priced.ProductID, &priced.Name, &priced.UnitPrice, &priced.Stock, &priced.Threshold)
		if err != nil {
			if err == sql.ErrNoRows {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "message": fmt.Sprintf("Product with id %d not found", item.ProductID)})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch product"})
			return
		}
		priced.Quantity = item.Quantity

		if priced.Stock < priced.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("Insufficient stock for %s. Available: %d", priced.Name, priced.Stock)})
			return
		}

		totalAmount += priced.UnitPrice * float64(priced.Quantity)
		pricedItems = append(pricedItems, priced)
	}

	now := time.Now()
	reference := uuid.New().String()
	orderQuery := `
		INSERT INTO orders (reference, order_type, client_name, client_email, client_phone,
			client_location, user_id, total_amount, status, payment_status, created_at, updated_at)
		VALUES (?, 'product', ?, ?, ?, ?, ?, ?, 'pending', 'pending', ?, ?)`
	result, err := tx.Exec(orderQuery, reference, client.Name, client.Email, client.Phone,
		client.Location, client.UserID, totalAmount, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create order"})
		return
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get new order ID"})
		return
	}

	itemQuery := "INSERT INTO order_items (order_id, product_id, quantity, unit_price, created_at) VALUES (?, ?, ?, ?, ?)"
	// Decrement only while enough stock remains; zero affected rows means
	// another order got there first or the request asked for too much.
	stockQuery := "UPDATE products SET stock_quantity = stock_quantity - ?, updated_at = ? WHERE id = ? AND stock_quantity >= ?"

	for _, item := range pricedItems {
		if _, err := tx.Exec(itemQuery, orderID, item.ProductID, item.Quantity, item.UnitPrice, now); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save order item"})
			return
		}

		decr, err := tx.Exec(stockQuery, item.Quantity, now, item.ProductID, item.Quantity)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to deduct stock"})
			return
		}
		if affected, _ := decr.RowsAffected(); affected == 0 {
			// Rolls back the whole order; nothing is partially filled.
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": fmt.Sprintf("Insufficient stock for %s", item.Name)})
			return
		}

		var remaining int
		if err := tx.QueryRow("SELECT stock_quantity FROM products WHERE id = ?", item.ProductID).Scan(&remaining); err == nil {
			if remaining <= item.Threshold {
				if err := h.addLowStockNotification(tx, item.ProductID, item.Name, remaining); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to record low-stock alert"})
					return
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to commit order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Order created successfully",
		"data": gin.H{
			"orderId":       orderID,
			"reference":     reference,
			"totalAmount":   totalAmount,
			"status":        models.StatusPending,
			"paymentStatus": models.PaymentPending,
		},
	})
}

// CreateProductOrder is the handler for POST /api/orders/products (public,
// optionally authenticated).
func (h *Handlers) CreateProductOrder(c *gin.Context) {
	var input ProductOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}
	h.placeProductOrder(c, input)
}

// --- Course orders ---

type CourseOrderInput struct {
	CourseID int64 `json:"courseId" binding:"required"`
}

// CreateCourseOrder is the handler for POST /api/orders/courses
// (authenticated). Writes the order and the enrollment in one transaction;
// the enrollment set is the source of truth for both the capacity and the
// duplicate check.
func (h *Handlers) CreateCourseOrder(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input CourseOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	user, err := h.loadUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load user"})
		return
	}

	tx, err := h.DB.BeginTx(c, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var price float64
	var maxStudents int
	err = tx.QueryRow("SELECT price, max_students FROM courses WHERE id = ? FOR UPDATE", input.CourseID).Scan(&price, &maxStudents)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Course not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch course"})
		return
	}

	var enrolled int
	if err := tx.QueryRow("SELECT COUNT(*) FROM course_enrollments WHERE course_id = ?", input.CourseID).Scan(&enrolled); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to count enrollments"})
		return
	}
	if enrolled >= maxStudents {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Course is full"})
		return
	}

	var existingID int64
	err = tx.QueryRow("SELECT id FROM course_enrollments WHERE course_id = ? AND user_id = ?", input.CourseID, userID).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "You are already enrolled in this course"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to check enrollment"})
		return
	}

	phone := ""
	if user.Phone != nil {
		phone = *user.Phone
	}
	location := ""
	if user.Address != nil {
		location = *user.Address
	}

	now := time.Now()
	reference := uuid.New().String()
	orderQuery := `
		INSERT INTO orders (reference, order_type, client_name, client_email, client_phone,
			client_location, user_id, total_amount, status, payment_status, created_at, updated_at)
		VALUES (?, 'course', ?, ?, ?, ?, ?, ?, 'processing', 'pending', ?, ?)`
	result, err := tx.Exec(orderQuery, reference, user.Name, user.Email, phone, location,
		userID, price, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create order"})
		return
	}
	orderID, _ := result.LastInsertId()

	_, err = tx.Exec("INSERT INTO order_items (order_id, course_id, quantity, unit_price, created_at) VALUES (?, ?, 1, ?, ?)",
		orderID, input.CourseID, price, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save order item"})
		return
	}

	// The unique (course_id, user_id) key makes this idempotent even if a
	// concurrent request slipped past the existence check above.
	_, err = tx.Exec("INSERT IGNORE INTO course_enrollments (course_id, user_id, created_at) VALUES (?, ?, ?)",
		input.CourseID, userID, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to enroll"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to commit order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Successfully enrolled in course",
		"data": gin.H{
			"orderId":     orderID,
			"reference":   reference,
			"totalAmount": price,
			"status":      models.StatusProcessing,
		},
	})
}

// --- Order retrieval ---

// GetOrders is the handler for GET /api/orders (admin).
func (h *Handlers) GetOrders(c *gin.Context) {
	rows, err := h.DB.Query("SELECT " + orderColumns + " FROM orders ORDER BY created_at DESC")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrderRow(rows.Scan)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to scan order"})
			return
		}
		orders = append(orders, o)
	}

	for _, o := range orders {
		items, err := h.fetchOrderItems(o.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch order items"})
			return
		}
		o.Items = items
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders})
}

// GetOrder is the handler for GET /api/orders/:id (admin).
func (h *Handlers) GetOrder(c *gin.Context) {
	row := h.DB.QueryRow("SELECT "+orderColumns+" FROM orders WHERE id = ?", c.Param("id"))
	o, err := scanOrderRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch order"})
		return
	}

	items, err := h.fetchOrderItems(o.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch order items"})
		return
	}
	o.Items = items

	c.JSON(http.StatusOK, gin.H{"success": true, "data": o})
}

// GetMyOrders is the handler for GET /api/orders/my-orders (authenticated).
func (h *Handlers) GetMyOrders(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	rows, err := h.DB.Query("SELECT "+orderColumns+" FROM orders WHERE user_id = ? ORDER BY created_at DESC", userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrderRow(rows.Scan)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to scan order"})
			return
		}
		orders = append(orders, o)
	}

	for _, o := range orders {
		items, err := h.fetchOrderItems(o.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch order items"})
			return
		}
		o.Items = items
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": orders})
}

// GetOrdersByProduct is the handler for GET /api/orders/product/:productId
// (admin): every order containing the given product, newest first, with the
// client snapshot for follow-up.
func (h *Handlers) GetOrdersByProduct(c *gin.Context) {
	query := `
		SELECT DISTINCT o.id, o.reference, o.order_type, o.client_name, o.client_email,
			o.client_phone, o.client_location, o.user_id, o.total_amount,
			o.preferred_start_date, o.preferred_end_date, o.status, o.payment_status,
			o.payment_method, o.created_at, o.updated_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE oi.product_id = ?
		ORDER BY o.created_at DESC`
	rows, err := h.DB.Query(query, c.Param("productId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrderRow(rows.Scan)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to scan order"})
			return
		}
		orders = append(orders, o)
	}

	for _, o := range orders {
		items, err := h.fetchOrderItems(o.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch order items"})
			return
		}
		o.Items = items
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(orders), "data": orders})
}

// GetMyPurchases is the handler for GET /api/orders/my-purchases
// (authenticated): the distinct products from the caller's completed, paid
// orders.
func (h *Handlers) GetMyPurchases(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	query := `
		SELECT DISTINCT p.id, p.name, p.slug, p.description, p.category, p.price,
			p.stock_quantity, p.low_stock_threshold, p.specifications, p.images,
			p.created_at, p.updated_at
		FROM products p
		JOIN order_items oi ON oi.product_id = p.id
		JOIN orders o ON o.id = oi.order_id
		WHERE o.user_id = ? AND o.status = 'completed' AND o.payment_status = 'paid'`
	rows, err := h.DB.Query(query, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch purchases"})
		return
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProductRow(rows.Scan)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": products})
}

// --- Status transitions ---

type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required,oneof=pending processing confirmed completed cancelled"`
}

// UpdateOrderStatus is the handler for PUT /api/orders/:id/status (admin).
// Any status may be set from any other; transitions are unconditional
// administrator writes.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	result, err := h.DB.Exec("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		input.Status, time.Now(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update order status"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"status": input.Status}})
}

type UpdatePaymentStatusInput struct {
	PaymentStatus string `json:"paymentStatus" binding:"required"`
}

// UpdatePaymentStatus is the handler for PUT /api/orders/:id/payment (admin).
func (h *Handlers) UpdatePaymentStatus(c *gin.Context) {
	var input UpdatePaymentStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	paymentStatus := models.NormalizePaymentStatus(input.PaymentStatus)
	if paymentStatus == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payment status"})
		return
	}

	result, err := h.DB.Exec("UPDATE orders SET payment_status = ?, updated_at = ? WHERE id = ?",
		paymentStatus, time.Now(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update payment status"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"paymentStatus": paymentStatus}})
}

// --- Background sweeper ---

// ProcessStaleOrders cancels product orders that have sat unpaid past the
// configured TTL and restores their stock. Called from the ticker goroutine
// in main; failures are logged and retried on the next tick.
func (h *Handlers) ProcessStaleOrders() {
	cutoff := time.Now().Add(-h.StaleOrderTTL)

	rows, err := h.DB.Query(`
		SELECT id FROM orders
		WHERE order_type = 'product' AND status = 'pending'
		  AND payment_status = 'pending' AND created_at < ?`, cutoff)
	if err != nil {
		log.Printf("stale-order sweep: query failed: %v", err)
		return
	}
	defer rows.Close()

	var orderIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			log.Printf("stale-order sweep: scan failed: %v", err)
			return
		}
		orderIDs = append(orderIDs, id)
	}

	for _, orderID := range orderIDs {
		if err := h.cancelStaleOrder(orderID); err != nil {
			log.Printf("stale-order sweep: order %d: %v", orderID, err)
		} else {
			log.Printf("stale-order sweep: cancelled unpaid order %d and restored stock", orderID)
		}
	}
}

// cancelStaleOrder restores the order's stock and marks it cancelled in one
// transaction.
func (h *Handlers) cancelStaleOrder(orderID int64) error {
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Re-check under the transaction; an admin may have just confirmed it.
	var status, paymentStatus string
	err = tx.QueryRow("SELECT status, payment_status FROM orders WHERE id = ? FOR UPDATE", orderID).Scan(&status, &paymentStatus)
	if err != nil {
		return err
	}
	if status != models.StatusPending || paymentStatus != models.PaymentPending {
		return nil
	}

	itemRows, err := tx.Query("SELECT product_id, quantity FROM order_items WHERE order_id = ? AND product_id IS NOT NULL", orderID)
	if err != nil {
		return err
	}
	defer itemRows.Close()

	type restock struct {
		ProductID int64
		Quantity  int
	}
	var restocks []restock
	for itemRows.Next() {
		var r restock
		if err := itemRows.Scan(&r.ProductID, &r.Quantity); err != nil {
			return err
		}
		restocks = append(restocks, r)
	}
	if err := itemRows.Err(); err != nil {
		return err
	}

	now := time.Now()
	for _, r := range restocks {
		if _, err := tx.Exec("UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?",
			r.Quantity, now, r.ProductID); err != nil {
			return err
		}
	}

	if _, err := tx.Exec("UPDATE orders SET status = 'cancelled', updated_at = ? WHERE id = ?", now, orderID); err != nil {
		return err
	}

	return tx.Commit()
}
