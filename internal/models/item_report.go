package models

import (
	"time"
)

type ReportType int

const (
	ReportTypeLost  ReportType = 1
	ReportTypeFound ReportType = 2
)

func (t ReportType) String() string {
	switch t {
	case ReportTypeLost:
		return "Lost"
	case ReportTypeFound:
		return "Found"
	}
	return "Unknown"
}

type ItemStatus int

const (
	ItemStatusOpen         ItemStatus = 1
	ItemStatusPendingClaim ItemStatus = 2
	ItemStatusClaimed      ItemStatus = 3
)

func (s ItemStatus) String() string {
	switch s {
	case ItemStatusOpen:
		return "Open"
	case ItemStatusPendingClaim:
		return "Pending claim"
	case ItemStatusClaimed:
		return "Claimed"
	}
	return "Unknown"
}

// ItemReport is a posted lost-or-found listing. Status only moves through
// claim lifecycle events (create/approve/reject/delete-while-new) or the
// admin reopen action, never through Edit.
type ItemReport struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	OwnerID      *uint      `gorm:"index" json:"owner_id"`
	Owner        *User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"owner,omitempty"`
	Type         ReportType `gorm:"not null" json:"type"`
	Title        string     `gorm:"not null" json:"title"`
	Description  string     `gorm:"type:text" json:"description"`
	CategoryID   uint       `gorm:"not null;index" json:"category_id"`
	Category     Category   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"category"`
	LocationID   uint       `gorm:"not null;index" json:"location_id"`
	Location     Location   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"location"`
	DateReported time.Time  `gorm:"not null" json:"date_reported"`
	Status       ItemStatus `gorm:"not null;default:1" json:"status"`
	PhotoPath    string     `json:"photo_path"`
	ContactName  string     `gorm:"not null" json:"contact_name"`
	ContactEmail string     `gorm:"not null" json:"contact_email"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// OwnedBy reports whether the item belongs to the given user id.
func (i *ItemReport) OwnedBy(userID uint) bool {
	return i.OwnerID != nil && *i.OwnerID == userID
}
