package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InventoryItem struct {
	ID           string  `gorm:"type:uuid;primaryKey"`
	Name         string  `gorm:"size:100;not null"`
	Description  string  `gorm:"size:255"`
	Quantity     int     `gorm:"not null"`
	Price        float64 `gorm:"not null"`
	ReorderPoint int     `gorm:"not null;default:10"`
	BranchID     string  `gorm:"size:20;index;not null"` // branch code
	CreatedAt    time.Time
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// LowStock reports whether the item is at or below its reorder point.
func (i *InventoryItem) LowStock() bool {
	return i.Quantity <= i.ReorderPoint
}
