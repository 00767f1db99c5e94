package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Employee struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	FirstName string  `gorm:"size:100;not null"`
	LastName  string  `gorm:"size:100;not null"`
	Email     string  `gorm:"size:100;not null"`
	Position  string  `gorm:"size:100"`
	Salary    float64 `gorm:"not null"`
	BranchID  string  `gorm:"size:20;index;not null"` // branch code
	CreatedAt time.Time
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
