package handlers

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/linuxfriends/recoverysystem-golang/internal/models"
)

type ServiceSlotInput struct {
	ProductID int64 `json:"productId" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,gte=1"`
}

type ServiceInput struct {
	Description       string           `json:"description" binding:"required"`
	Panel             ServiceSlotInput `json:"panel" binding:"required"`
	Battery           ServiceSlotInput `json:"battery" binding:"required"`
	Controller        ServiceSlotInput `json:"controller" binding:"required"`
	Cable             ServiceSlotInput `json:"cable" binding:"required"`
	LaborCost         float64          `json:"laborCost" binding:"gte=0"`
	InstallationDate  time.Time        `json:"installationDate" binding:"required"`
	EstimatedDuration string           `json:"estimatedDuration" binding:"required"`
}

// slotError reports a problem with one of the four bundle slots during cost
// derivation.
type slotError struct {
	Slot     string
	NotFound bool
}

func (e *slotError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("%s product not found", e.Slot)
	}
	return fmt.Sprintf("Insufficient quantity for %s", e.Slot)
}

// deriveBundleCost resolves each slot's product at its current price and
// returns the summed product cost. The referenced product must exist and have
// at least the slot's quantity in stock.
func deriveBundleCost(tx *sql.Tx, slots map[string]ServiceSlotInput) (float64, error) {
	var productsCost float64

	for _, name := range models.SlotNames {
		slot := slots[name]

		var price float64
		var stock int
		err := tx.QueryRow("SELECT price, stock_quantity FROM products WHERE id = ?", slot.ProductID).Scan(&price, &stock)
		if err != nil {
			if err == sql.ErrNoRows {
				return 0, &slotError{Slot: name, NotFound: true}
			}
			return 0, err
		}

		if stock < slot.Quantity {
			return 0, &slotError{Slot: name}
		}

		productsCost += price * float64(slot.Quantity)
	}

	return productsCost, nil
}

func (input *ServiceInput) slots() map[string]ServiceSlotInput {
	return map[string]ServiceSlotInput{
		"panel":      input.Panel,
		"battery":    input.Battery,
		"controller": input.Controller,
		"cable":      input.Cable,
	}
}

func respondSlotError(c *gin.Context, err error) bool {
	if slotErr, ok := err.(*slotError); ok {
		status := http.StatusBadRequest
		if slotErr.NotFound {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "message": slotErr.Error()})
		return true
	}
	return false
}

// CreateService is the handler for POST /api/services (admin). The total
// cost is derived inside the save transaction and never taken from input.
func (h *Handlers) CreateService(c *gin.Context) {
	var input ServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	tx, err := h.DB.BeginTx(c, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	productsCost, err := deriveBundleCost(tx, input.slots())
	if err != nil {
		if respondSlotError(c, err) {
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to price bundle"})
		return
	}
	totalCost := productsCost + input.LaborCost

	now := time.Now()
	query := `
		INSERT INTO services (name, description, panel_product_id, panel_quantity,
			battery_product_id, battery_quantity, controller_product_id, controller_quantity,
			cable_product_id, cable_quantity, labor_cost, total_cost,
			installation_date, estimated_duration, created_at, updated_at)
		VALUES ('Solar Installation', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.Exec(query, input.Description,
		input.Panel.ProductID, input.Panel.Quantity,
		input.Battery.ProductID, input.Battery.Quantity,
		input.Controller.ProductID, input.Controller.Quantity,
		input.Cable.ProductID, input.Cable.Quantity,
		input.LaborCost, totalCost, input.InstallationDate, input.EstimatedDuration, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create service"})
		return
	}
	serviceID, _ := result.LastInsertId()

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to commit service"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    gin.H{"id": serviceID, "totalCost": totalCost},
	})
}

// UpdateService is the handler for PUT /api/services/:id (admin). The total
// cost is recomputed from current product prices on every update.
func (h *Handlers) UpdateService(c *gin.Context) {
	var input ServiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	tx, err := h.DB.BeginTx(c, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to start transaction"})
		return
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRow("SELECT id FROM services WHERE id = ?", c.Param("id")).Scan(&existingID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Service not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch service"})
		return
	}

	productsCost, err := deriveBundleCost(tx, input.slots())
	if err != nil {
		if respondSlotError(c, err) {
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to price bundle"})
		return
	}
	totalCost := productsCost + input.LaborCost

	query := `
		UPDATE services
		SET description = ?, panel_product_id = ?, panel_quantity = ?,
			battery_product_id = ?, battery_quantity = ?,
			controller_product_id = ?, controller_quantity = ?,
			cable_product_id = ?, cable_quantity = ?,
			labor_cost = ?, total_cost = ?, installation_date = ?,
			estimated_duration = ?, updated_at = ?
		WHERE id = ?`
	_, err = tx.Exec(query, input.Description,
		input.Panel.ProductID, input.Panel.Quantity,
		input.Battery.ProductID, input.Battery.Quantity,
		input.Controller.ProductID, input.Controller.Quantity,
		input.Cable.ProductID, input.Cable.Quantity,
		input.LaborCost, totalCost, input.InstallationDate, input.EstimatedDuration,
		time.Now(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update service"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to commit service"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"id": c.Param("id"), "totalCost": totalCost},
	})
}

const serviceColumns = `s.id, s.name, s.description,
	s.panel_product_id, s.panel_quantity, s.battery_product_id, s.battery_quantity,
	s.controller_product_id, s.controller_quantity, s.cable_product_id, s.cable_quantity,
	s.labor_cost, s.total_cost, s.installation_date, s.estimated_duration, s.created_at, s.updated_at`

func scanServiceRow(scan func(dest ...interface{}) error) (*models.Service, error) {
	var s models.Service
	err := scan(&s.ID, &s.Name, &s.Description,
		&s.Panel.ProductID, &s.Panel.Quantity,
		&s.Battery.ProductID, &s.Battery.Quantity,
		&s.Controller.ProductID, &s.Controller.Quantity,
		&s.Cable.ProductID, &s.Cable.Quantity,
		&s.LaborCost, &s.TotalCost, &s.InstallationDate, &s.EstimatedDuration,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetServices is the handler for GET /api/services (public).
func (h *Handlers) GetServices(c *gin.Context) {
	rows, err := h.DB.Query("SELECT " + serviceColumns + " FROM services s ORDER BY s.created_at DESC")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch services"})
		return
	}
	defer rows.Close()

	services := []*models.Service{}
	for rows.Next() {
		s, err := scanServiceRow(rows.Scan)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to scan service"})
			return
		}
		services = append(services, s)
	}

	// Attach product names and current prices to each slot.
	for _, s := range services {
		for _, slot := range s.Slots() {
			var name string
			var price float64
			if err := h.DB.QueryRow("SELECT name, price FROM products WHERE id = ?", slot.ProductID).Scan(&name, &price); err == nil {
				slot.ProductName = &name
				slot.UnitPrice = &price
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": services})
}

// DeleteService is the handler for DELETE /api/services/:id (admin).
func (h *Handlers) DeleteService(c *gin.Context) {
	result, err := h.DB.Exec("DELETE FROM services WHERE id = ?", c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete service"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Service not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

// GetAvailableProducts is the handler for GET /api/services/available-products
// (admin): in-stock products in the four bundle categories, for building a
// service definition.
func (h *Handlers) GetAvailableProducts(c *gin.Context) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE stock_quantity > 0
		  AND category IN ('Solar Panel', 'Battery', 'Controller', 'Cable')
		ORDER BY category, name`
	rows, err := h.DB.Query(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch products"})
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

type ServiceRequestInput struct {
	ClientInput
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

// RequestService is the handler for POST /api/services/:id/request (public,
// optionally authenticated). Creates a pending service order at the bundle's
// current total cost. No inventory moves here; fulfillment is a separate
// administrative step.
func (h *Handlers) RequestService(c *gin.Context) {
	var input ServiceRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	var totalCost float64
	err := h.DB.QueryRow("SELECT total_cost FROM services WHERE id = ?", c.Param("id")).Scan(&totalCost)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Service not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch service"})
		return
	}

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

	now := time.Now()
	reference := uuid.New().String()
	orderQuery := `
		INSERT INTO orders (reference, order_type, client_name, client_email, client_phone,
			client_location, user_id, total_amount, preferred_start_date, preferred_end_date,
			status, payment_status, created_at, updated_at)
		VALUES (?, 'service', ?, ?, ?, ?, ?, ?, ?, ?, 'pending', 'pending', ?, ?)`
	result, err := tx.Exec(orderQuery, reference, client.Name, client.Email, client.Phone,
		client.Location, client.UserID, totalCost, input.StartDate, input.EndDate, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create order"})
		return
	}
	orderID, _ := result.LastInsertId()

	serviceID := c.Param("id")
	_, err = tx.Exec("INSERT INTO order_items (order_id, service_id, quantity, unit_price, created_at) VALUES (?, ?, 1, ?, ?)",
		orderID, serviceID, totalCost, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save order item"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to commit order"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Service request submitted successfully",
		"data": gin.H{
			"orderId":     orderID,
			"reference":   reference,
			"totalAmount": totalCost,
			"status":      models.StatusPending,
		},
	})
}
