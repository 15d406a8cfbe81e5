package entity

import "time"

type Vehicle struct {
	ID           string   `json:"id" firestore:"id"`
	DealerID     string   `json:"dealer_id" firestore:"dealerId"`
	Make         string   `json:"make" firestore:"make"`
	Model        string   `json:"model" firestore:"model"`
	Year         int      `json:"year" firestore:"year"`
	Price        float64  `json:"price" firestore:"price"`
	Mileage      int      `json:"mileage" firestore:"mileage"`
	Transmission string   `json:"transmission,omitempty" firestore:"transmission,omitempty"`
	FuelType     string   `json:"fuel_type,omitempty" firestore:"fuelType,omitempty"`
	Condition    string   `json:"condition,omitempty" firestore:"condition,omitempty"`
	Status       string   `json:"status" firestore:"status"` // "available", "pending", "sold"
	Images       []string `json:"images,omitempty" firestore:"images,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
