package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Marriage is a fixed coupling of cars operated as one unit. Membership is
// independent of any filtering or pagination applied to the car listing.
type Marriage struct {
	MarriageID int64   `gorm:"primaryKey" json:"marriage_id"`
	BatchID    int64   `gorm:"index" json:"batch_id"`
	CarIDs     IntList `gorm:"type:json" json:"cars"`
	GroupSize  int     `json:"group_size"`
}

// IntList stores an ordered list of car ids as a JSON array column.
type IntList []int64

// Value serializes the list for storage.
func (l IntList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]int64(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan deserializes the list from a JSON column.
func (l *IntList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]int64)(l))
	case string:
		return json.Unmarshal([]byte(v), (*[]int64)(l))
	default:
		return fmt.Errorf("models: scan IntList from %T", src)
	}
}
