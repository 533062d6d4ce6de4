package models

// CarModel describes a manufacturing batch of cars sharing specification
// data, keyed by batch id.
type CarModel struct {
	BatchID             int64  `gorm:"primaryKey" json:"batch_id"`
	CommonName          string `gorm:"size:64" json:"common_name"`
	Manufacturer        string `gorm:"size:64" json:"manufacturer"`
	ManufactureLocation string `gorm:"size:64" json:"manufacture_location"`
	YearsManufactured   string `gorm:"size:32" json:"years_manufactured"`
	FullName            string `gorm:"size:128" json:"full_name"`
}
