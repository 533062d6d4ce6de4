package models

import "time"

// TrainCar is a single tracked fleet unit. Rows are owned by the upstream
// fleet database; this service only reads them.
type TrainCar struct {
	CarID            int64     `gorm:"column:car_id;primaryKey" json:"car_id"`
	Name             *string   `gorm:"size:64;uniqueIndex" json:"name"`
	Status           string    `gorm:"size:32;index" json:"status"`
	DeliveryDate     *string   `gorm:"size:32" json:"delivery_date"`
	EnterServiceDate *string   `gorm:"size:32" json:"enter_service_date"`
	BatchID          *int64    `gorm:"index" json:"batch_id"`
	Notes            *string   `gorm:"type:text" json:"notes"`
	UpdatedAt        time.Time `json:"-"`

	Batch *CarModel `gorm:"foreignKey:BatchID;references:BatchID" json:"-"`
}

// Display statuses carried by upstream data. Not validated on read; the
// client only uses them for color coding.
const (
	StatusInService = "In Service"
	StatusInTesting = "In Testing"
	StatusRetired   = "Retired"
	StatusScrapped  = "Scrapped"
	StatusSold      = "Sold"
	StatusUnknown   = "Unknown"
)
