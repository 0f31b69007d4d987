package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gosimple/slug"
	"github.com/linuxfriends/recoverysystem-golang/internal/models"
)

// --- Inputs ---

type ProductInput struct {
	Name              string                 `json:"name" binding:"required,max=100"`
	Description       string                 `json:"description" binding:"required,max=500"`
	Category          string                 `json:"category" binding:"required"`
	Price             float64                `json:"price" binding:"gte=0"`
	Stock             int                    `json:"stock" binding:"gte=0"`
	LowStockThreshold *int                   `json:"lowStockThreshold" binding:"omitempty,gte=0"`
	Specifications    map[string]interface{} `json:"specifications" binding:"required"`
	Images            []string               `json:"images"`
}

// scanProductRow reads one products row, decoding the JSON columns.
func scanProductRow(scan func(dest ...interface{}) error) (*models.Product, error) {
	var p models.Product
	var specsJSON, imagesJSON []byte

	err := scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Category,
		&p.Price, &p.StockQuantity, &p.LowStockThreshold,
		&specsJSON, &imagesJSON, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(specsJSON, &p.Specifications); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(imagesJSON, &p.Images); err != nil {
		return nil, err
	}
	return &p, nil
}

const productColumns = `id, name, slug, description, category, price, stock_quantity,
	low_stock_threshold, specifications, images, created_at, updated_at`

// CreateProduct is the handler for POST /api/products (admin).
func (h *Handlers) CreateProduct(c *gin.Context) {
	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if !models.ValidCategory(input.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": input.Category + " is not a valid category"})
		return
	}
	if err := models.ValidateSpecifications(input.Category, input.Specifications); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	// Product names are unique, case-insensitively.
	var existingID int64
	err := h.DB.QueryRow("SELECT id FROM products WHERE LOWER(name) = LOWER(?)", input.Name).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A product with this name already exists"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to check product name"})
		return
	}

	// Drop spec fields that don't belong to the category before persisting.
	specs := models.StripSpecifications(input.Category, input.Specifications)
	specsJSON, _ := json.Marshal(specs)

	images := input.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, _ := json.Marshal(images)

	threshold := 5
	if input.LowStockThreshold != nil {
		threshold = *input.LowStockThreshold
	}

	now := time.Now()
	query := `
		INSERT INTO products (name, slug, description, category, price, stock_quantity,
			low_stock_threshold, specifications, images, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := h.DB.Exec(query, input.Name, slug.Make(input.Name), input.Description,
		input.Category, input.Price, input.Stock, threshold, specsJSON, imagesJSON, now, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create product"})
		return
	}
	productID, _ := result.LastInsertId()

	product := &models.Product{
		ID:                productID,
		Name:              input.Name,
		Slug:              slug.Make(input.Name),
		Description:       input.Description,
		Category:          input.Category,
		Price:             input.Price,
		StockQuantity:     input.Stock,
		LowStockThreshold: threshold,
		Specifications:    specs,
		Images:            images,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": product})
}

// GetProducts is the handler for GET /api/products (public).
func (h *Handlers) GetProducts(c *gin.Context) {
	rows, err := h.DB.Query("SELECT " + productColumns + " FROM products ORDER BY created_at DESC")
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

// GetProduct is the handler for GET /api/products/:id (public).
func (h *Handlers) GetProduct(c *gin.Context) {
	row := h.DB.QueryRow("SELECT "+productColumns+" FROM products WHERE id = ?", c.Param("id"))
	p, err := scanProductRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

// UpdateProduct is the handler for PUT /api/products/:id (admin).
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	if !models.ValidCategory(input.Category) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": input.Category + " is not a valid category"})
		return
	}
	if err := models.ValidateSpecifications(input.Category, input.Specifications); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	// Renaming onto another product's name is the same conflict as creating it.
	var existingID int64
	err := h.DB.QueryRow("SELECT id FROM products WHERE LOWER(name) = LOWER(?) AND id != ?",
		input.Name, c.Param("id")).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "A product with this name already exists"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to check product name"})
		return
	}

	specs := models.StripSpecifications(input.Category, input.Specifications)
	specsJSON, _ := json.Marshal(specs)

	images := input.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, _ := json.Marshal(images)

	// Stock is deliberately not writable here: it only moves through the
	// stock endpoint and checkout. The threshold keeps its current value
	// unless the body sets one.
	query := `
		UPDATE products
		SET name = ?, slug = ?, description = ?, category = ?, price = ?,
			low_stock_threshold = COALESCE(?, low_stock_threshold),
			specifications = ?, images = ?, updated_at = ?
		WHERE id = ?`
	result, err := h.DB.Exec(query, input.Name, slug.Make(input.Name), input.Description,
		input.Category, input.Price, input.LowStockThreshold, specsJSON, imagesJSON,
		time.Now(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update product"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}

	row := h.DB.QueryRow("SELECT "+productColumns+" FROM products WHERE id = ?", c.Param("id"))
	p, err := scanProductRow(row.Scan)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch updated product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": p})
}

// DeleteProduct is the handler for DELETE /api/products/:id (admin).
func (h *Handlers) DeleteProduct(c *gin.Context) {
	result, err := h.DB.Exec("DELETE FROM products WHERE id = ?", c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to delete product"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{}})
}

// --- Stock adjustment ---

type UpdateStockInput struct {
	Quantity  int    `json:"quantity" binding:"gte=0"`
	Operation string `json:"operation" binding:"required,oneof=set add subtract"`
}

// UpdateStock is the handler for PUT /api/products/:id/stock (admin).
// Supports set/add/subtract; subtract never drives stock below zero.
func (h *Handlers) UpdateStock(c *gin.Context) {
	var input UpdateStockInput
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

	var name string
	var threshold int
	err = tx.QueryRow("SELECT name, low_stock_threshold FROM products WHERE id = ? FOR UPDATE", c.Param("id")).Scan(&name, &threshold)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch product"})
		return
	}

	now := time.Now()
	switch input.Operation {
	case "set":
		_, err = tx.Exec("UPDATE products SET stock_quantity = ?, updated_at = ? WHERE id = ?",
			input.Quantity, now, c.Param("id"))
	case "add":
		_, err = tx.Exec("UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?",
			input.Quantity, now, c.Param("id"))
	case "subtract":
		// Conditional decrement: zero affected rows means the subtraction
		// would have gone negative.
		var result sql.Result
		result, err = tx.Exec("UPDATE products SET stock_quantity = stock_quantity - ?, updated_at = ? WHERE id = ? AND stock_quantity >= ?",
			input.Quantity, now, c.Param("id"), input.Quantity)
		if err == nil {
			if affected, _ := result.RowsAffected(); affected == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Insufficient stock"})
				return
			}
		}
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to update stock"})
		return
	}

	var newStock int
	if err := tx.QueryRow("SELECT stock_quantity FROM products WHERE id = ?", c.Param("id")).Scan(&newStock); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to read updated stock"})
		return
	}

	// Low-stock signal for the restock feed.
	if newStock <= threshold {
		if err := h.addLowStockNotification(tx, c.Param("id"), name, newStock); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to record low-stock alert"})
			return
		}
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to commit stock update"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"stock": newStock}})
}

// GetLowStockProducts is the handler for GET /api/products/low-stock (admin).
func (h *Handlers) GetLowStockProducts(c *gin.Context) {
	rows, err := h.DB.Query("SELECT " + productColumns + " FROM products WHERE stock_quantity <= low_stock_threshold ORDER BY stock_quantity ASC")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to fetch low-stock products"})
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
