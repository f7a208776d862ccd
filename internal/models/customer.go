// internal/models/customer.go
package models

// Customer is a synthetic CRM customer produced by the dataset generator.
type Customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductRecommendation is one entry of the fixed product catalog.
type ProductRecommendation struct {
	Product     string `json:"product"`
	Description string `json:"description"`
}
