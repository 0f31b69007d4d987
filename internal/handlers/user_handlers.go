package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/linuxfriends/recoverysystem-golang/internal/auth"
	"github.com/linuxfriends/recoverysystem-golang/internal/models"
)

// RegisterInput holds the fields we accept from a new customer. Kept separate
// from models.User so callers can never set their own id or role.
type RegisterInput struct {
	Name     string  `json:"name" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6"`
	Phone    *string `json:"phone"`
	Address  *string `json:"address"`
}

// Register is the handler for POST /api/auth/register. New accounts are
// always customers; admin accounts go through RegisterAdmin.
func (h *Handlers) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))

	// Reject duplicate emails up front for a clean message; the unique key
	// on users.email is the real guarantee.
	var existingID int64
	err := h.DB.QueryRow("SELECT id FROM users WHERE email = ?", email).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User already exists"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to check existing user"})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to hash password"})
		return
	}

	query := `
		INSERT INTO users (name, email, password_hash, phone, address, role, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	result, err := h.DB.Exec(query, input.Name, email, password.Hash, input.Phone, input.Address, models.RoleCustomer, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create user"})
		return
	}
	userID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to get new user ID"})
		return
	}

	token, err := auth.GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":    userID,
			"name":  input.Name,
			"email": email,
			"role":  models.RoleCustomer,
			"token": token,
		},
	})
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login is the handler for POST /api/auth/login.
func (h *Handlers) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Please provide email and password"})
		return
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))

	var user models.User
	query := "SELECT id, name, email, password_hash, role FROM users WHERE email = ?"
	err := h.DB.QueryRow(query, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role)
	if err != nil {
		// Same message for unknown email and bad password.
		if err == sql.ErrNoRows {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to look up user"})
		return
	}

	password := models.Password{Hash: user.PasswordHash}
	match, err := password.Matches(strings.TrimSpace(input.Password))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to verify password"})
		return
	}
	if !match {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid credentials"})
		return
	}

	token, err := auth.GenerateToken(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"id":    user.ID,
			"name":  user.Name,
			"email": user.Email,
			"role":  user.Role,
			"token": token,
		},
	})
}

type RegisterAdminInput struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"omitempty,oneof=admin superadmin"`
}

// RegisterAdmin is the handler for POST /api/auth/admin/register.
// The route is gated to superadmins.
func (h *Handlers) RegisterAdmin(c *gin.Context) {
	var input RegisterAdminInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return
	}

	role := input.Role
	if role == "" {
		role = models.RoleAdmin
	}

	email := strings.TrimSpace(strings.ToLower(input.Email))

	var existingID int64
	err := h.DB.QueryRow("SELECT id FROM users WHERE email = ?", email).Scan(&existingID)
	if err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "User already exists"})
		return
	}
	if err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to check existing user"})
		return
	}

	var password models.Password
	if err := password.Set(input.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to hash password"})
		return
	}

	query := `
		INSERT INTO users (name, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`
	result, err := h.DB.Exec(query, input.Name, email, password.Hash, role, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create admin"})
		return
	}
	adminID, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":    adminID,
			"name":  input.Name,
			"email": email,
			"role":  role,
		},
	})
}
