package models

import "time"

// ServiceSlot is one of the four required product lines in an installation
// bundle.
type ServiceSlot struct {
	ProductID int64 `json:"productId" db:"product_id"`
	Quantity  int   `json:"quantity" db:"quantity"`

	// Populated by joins for read responses.
	ProductName *string  `json:"productName,omitempty" db:"-"`
	UnitPrice   *float64 `json:"unitPrice,omitempty" db:"-"`
}

// Service is the model for the 'services' table: a fixed-shape installation
// bundle of panel + battery + controller + cable plus labor.
type Service struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`

	Panel      ServiceSlot `json:"panel"`
	Battery    ServiceSlot `json:"battery"`
	Controller ServiceSlot `json:"controller"`
	Cable      ServiceSlot `json:"cable"`

	LaborCost float64 `json:"laborCost" db:"labor_cost"`
	// TotalCost is derived on every save from current product prices plus
	// labor; it is never accepted from the caller.
	TotalCost float64 `json:"totalCost" db:"total_cost"`

	InstallationDate  time.Time `json:"installationDate" db:"installation_date"`
	EstimatedDuration string    `json:"estimatedDuration" db:"estimated_duration"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// SlotNames is the fixed order the four bundle slots are processed in.
var SlotNames = []string{"panel", "battery", "controller", "cable"}

// Slots returns the four bundle slots keyed by slot name.
func (s *Service) Slots() map[string]*ServiceSlot {
	return map[string]*ServiceSlot{
		"panel":      &s.Panel,
		"battery":    &s.Battery,
		"controller": &s.Controller,
		"cable":      &s.Cable,
	}
}
