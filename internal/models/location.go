package models

// Location is immutable reference data, seeded at startup.
type Location struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}
