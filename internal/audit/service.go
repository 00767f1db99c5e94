package audit

import (
	"encoding/json"
	"fmt"
	"log"

	"branchops-backend/internal/database"
	"branchops-backend/internal/models"
)

type LogOptions struct {
	BranchID    *string
	UserID      string
	UserEmail   string
	EntityType  string
	EntityID    string
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

func WriteLog(opts LogOptions) error {
	// jsonb columns need the JSON literal "null", not an empty string
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLog{
		BranchID:    opts.BranchID,
		UserID:      opts.UserID,
		UserEmail:   opts.UserEmail,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("could not write audit log: %w", err)
	}
	return nil
}

// Record writes a log entry and only logs on failure. Audit failures must
// never fail the mutation they describe.
func Record(opts LogOptions) {
	if err := WriteLog(opts); err != nil {
		log.Printf("[WARN] audit: %v", err)
	}
}
