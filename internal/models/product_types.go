package models

import (
	"fmt"
	"time"
)

// Product categories.
const (
	CategorySolarPanel = "Solar Panel"
	CategoryBattery    = "Battery"
	CategoryController = "Controller"
	CategoryCable      = "Cable"
	CategoryOther      = "Other"
)

// Product is the model for the 'products' table.
type Product struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Slug        string `json:"slug" db:"slug"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"`

	Price             float64 `json:"price" db:"price"`
	StockQuantity     int     `json:"stock" db:"stock_quantity"`
	LowStockThreshold int     `json:"lowStockThreshold" db:"low_stock_threshold"`

	// Specifications is persisted as a JSON column. Which keys are required
	// depends on Category; see ValidateSpecifications.
	Specifications map[string]interface{} `json:"specifications"`
	Images         []string               `json:"images"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// baseSpecKeys are required for every product regardless of category.
var baseSpecKeys = []string{"manufacturer", "model", "warranty"}

// categorySpecKeys maps each category to the specification keys it additionally
// requires. "Other" has no extras.
var categorySpecKeys = map[string][]string{
	CategorySolarPanel: {"wattage", "voltage", "dimensions"},
	CategoryBattery:    {"capacity", "type", "voltage"},
	CategoryController: {"maxCurrent", "features", "voltage"},
	CategoryCable:      {"length", "gauge", "material"},
	CategoryOther:      {},
}

// ValidCategory reports whether category is one of the accepted values.
func ValidCategory(category string) bool {
	_, ok := categorySpecKeys[category]
	return ok
}

// ValidateSpecifications checks that all keys required for the category are
// present and non-empty.
func ValidateSpecifications(category string, specs map[string]interface{}) error {
	required := append(append([]string{}, baseSpecKeys...), categorySpecKeys[category]...)
	for _, key := range required {
		value, ok := specs[key]
		if !ok || value == nil || value == "" {
			return fmt.Errorf("specification '%s' is required for category '%s'", key, category)
		}
	}
	return nil
}

// StripSpecifications drops any specification key that is not part of the
// category's schema, so fields irrelevant to the category are never persisted.
func StripSpecifications(category string, specs map[string]interface{}) map[string]interface{} {
	allowed := make(map[string]bool, len(baseSpecKeys)+3)
	for _, key := range baseSpecKeys {
		allowed[key] = true
	}
	for _, key := range categorySpecKeys[category] {
		allowed[key] = true
	}

	stripped := make(map[string]interface{}, len(specs))
	for key, value := range specs {
		if allowed[key] {
			stripped[key] = value
		}
	}
	return stripped
}
