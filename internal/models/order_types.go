package models

import "time"

// Order types.
const (
	OrderTypeProduct = "product"
	OrderTypeService = "service"
	OrderTypeCourse  = "course"
)

// Order statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusConfirmed  = "confirmed"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// ValidOrderStatus reports whether s is an accepted order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// NormalizePaymentStatus maps an input payment status to its stored value.
// "completed" is accepted as a legacy alias for "paid". Returns "" for
// anything unrecognized.
func NormalizePaymentStatus(s string) string {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return s
	case "completed":
		return PaymentPaid
	}
	return ""
}

// Client is the denormalized contact snapshot stored on every order. UserID
// is set when the order was placed by an authenticated account.
type Client struct {
	Name     string `json:"name" db:"client_name"`
	Email    string `json:"email" db:"client_email"`
	Phone    string `json:"phone" db:"client_phone"`
	Location string `json:"location" db:"client_location"`
	UserID   *int64 `json:"userId,omitempty" db:"user_id"`
}

// PreferredDates is the requested installation window. Mandatory for
// service orders only.
type PreferredDates struct {
	StartDate time.Time `json:"startDate" db:"preferred_start_date"`
	EndDate   time.Time `json:"endDate" db:"preferred_end_date"`
}

// Order is the model for the 'orders' table.
type Order struct {
	ID        int64  `json:"id" db:"id"`
	Reference string `json:"reference" db:"reference"` // public UUID for guest lookups
	OrderType string `json:"orderType" db:"order_type"`
	Client    Client `json:"client"`

	Items       []OrderItem `json:"items,omitempty" db:"-"`
	TotalAmount float64     `json:"totalAmount" db:"total_amount"`

	PreferredDates *PreferredDates `json:"preferredDates,omitempty"`

	Status        string  `json:"status" db:"status"`
	PaymentStatus string  `json:"paymentStatus" db:"payment_status"`
	PaymentMethod *string `json:"paymentMethod,omitempty" db:"payment_method"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OrderItem is one line of an order. Exactly one of ProductID, ServiceID,
// CourseID is set; UnitPrice is the price at the time of purchase.
type OrderItem struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"orderId" db:"order_id"`
	ProductID *int64    `json:"productId,omitempty" db:"product_id"`
	ServiceID *int64    `json:"serviceId,omitempty" db:"service_id"`
	CourseID  *int64    `json:"courseId,omitempty" db:"course_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	UnitPrice float64   `json:"unitPrice" db:"unit_price"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// Joined for read responses.
	Name *string `json:"name,omitempty" db:"-"`
}
