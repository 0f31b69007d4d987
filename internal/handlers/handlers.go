package handlers

import (
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linuxfriends/recoverysystem-golang/internal/models"
)

// Handlers holds all dependencies for our HTTP handlers.
type Handlers struct {
	DB *sql.DB

	// StaleOrderTTL is how long a product order may sit unpaid before the
	// background sweeper cancels it and restores its stock.
	StaleOrderTTL time.Duration
}

// loadUser fetches a user by ID.
func (h *Handlers) loadUser(userID int64) (*models.User, error) {
	var u models.User
	query := "SELECT id, name, email, phone, address, role, created_at FROM users WHERE id = ?"
	err := h.DB.QueryRow(query, userID).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Address, &u.Role, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ClientInput is the explicit contact tuple a guest supplies at checkout or
// when requesting an installation.
type ClientInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// resolveClient builds the order's client snapshot. An authenticated caller's
// profile fills the tuple first; body fields override profile values. Returns
// false when any of the four contact fields is still missing.
func (h *Handlers) resolveClient(userID *int64, input ClientInput) (models.Client, bool) {
	client := models.Client{
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Location: input.Location,
		UserID:   userID,
	}

	if userID != nil {
		if user, err := h.loadUser(*userID); err == nil {
			if client.Name == "" {
				client.Name = user.Name
			}
			if client.Email == "" {
				client.Email = user.Email
			}
			if client.Phone == "" && user.Phone != nil {
				client.Phone = *user.Phone
			}
			if client.Location == "" && user.Address != nil {
				client.Location = *user.Address
			}
		}
	}

	complete := client.Name != "" && client.Email != "" && client.Phone != "" && client.Location != ""
	return client, complete
}

// callerID reads the authenticated user ID set by the auth middleware.
// Returns nil when the request is anonymous.
func callerID(c *gin.Context) *int64 {
	raw, exists := c.Get("userID")
	if !exists {
		return nil
	}
	id, ok := raw.(int64)
	if !ok {
		return nil
	}
	return &id
}
