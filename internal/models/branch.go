package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Branch struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Name       string `gorm:"size:100;not null;unique"`
	Address    string `gorm:"size:255"`
	Phone      string `gorm:"size:50"`
	BranchCode string `gorm:"size:20;uniqueIndex;not null"` // referenced by UserProfile.BranchID
	ManagerID  string `gorm:"type:uuid"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (b *Branch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
