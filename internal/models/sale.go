package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Sale struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	ItemID      string  `gorm:"type:uuid;index;not null"`
	Quantity    int     `gorm:"not null"`
	TotalAmount float64 `gorm:"not null"`
	EmployeeID  string  `gorm:"type:uuid;index"`
	BranchID    string  `gorm:"size:20;index;not null"` // branch code
	CreatedAt   time.Time
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
