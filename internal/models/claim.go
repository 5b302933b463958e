package models

import (
	"time"
)

type ClaimStatus int

const (
	ClaimStatusNew      ClaimStatus = 1
	ClaimStatusApproved ClaimStatus = 2
	ClaimStatusRejected ClaimStatus = 3
)

func (s ClaimStatus) String() string {
	switch s {
	case ClaimStatusNew:
		return "New"
	case ClaimStatusApproved:
		return "Approved"
	case ClaimStatusRejected:
		return "Rejected"
	}
	return "Unknown"
}

// Claim is a request asserting ownership of an item report. Status moves
// New -> Approved|Rejected via admin action only; deleting a New claim is an
// implicit cancellation that reopens the item.
type Claim struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	ItemReportID uint        `gorm:"not null;index" json:"item_report_id"`
	ItemReport   ItemReport  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"item_report"`
	ClaimerName  string      `gorm:"not null" json:"claimer_name"`
	ClaimerEmail string      `gorm:"not null" json:"claimer_email"`
	Message      string      `gorm:"type:text" json:"message"`
	Status       ClaimStatus `gorm:"not null;default:1" json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
}
