package database

import (
	"fmt"
	"log"
	"strings"

	"branchops-backend/internal/config"
	"branchops-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	// TranslateError turns Postgres unique violations into gorm.ErrDuplicatedKey,
	// which the profile get-or-create path depends on.
	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("cannot connect to database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Branch{},
		&models.Employee{},
		&models.InventoryItem{},
		&models.Sale{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	backfillBranchCodes()

	log.Println("database connected, migrations complete")
}

// Branches created before branch_code existed have an empty code. Profiles
// reference branches by code, so every branch needs one before the server
// starts serving.
func backfillBranchCodes() {
	var branches []models.Branch
	if err := DB.Where("branch_code = ''").Find(&branches).Error; err != nil {
		log.Printf("[WARN] branch_code backfill query failed: %v", err)
		return
	}

	for _, b := range branches {
		code := DeriveBranchCode(b.Name, b.ID)
		if err := DB.Model(&models.Branch{}).Where("id = ?", b.ID).
			Update("branch_code", code).Error; err != nil {
			log.Printf("[WARN] could not backfill branch_code for %s: %v", b.ID, err)
			continue
		}
		log.Printf("backfilled branch_code=%s for branch %q", code, b.Name)
	}
}

// DeriveBranchCode builds a short human-readable code from the branch name,
// suffixed with part of the ID to keep it unique.
func DeriveBranchCode(name, id string) string {
	prefix := strings.ToUpper(strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, name))
	if len(prefix) > 6 {
		prefix = prefix[:6]
	}
	if prefix == "" {
		prefix = "BR"
	}
	suffix := strings.ReplaceAll(id, "-", "")
	if len(suffix) > 4 {
		suffix = suffix[:4]
	}
	return fmt.Sprintf("%s-%s", prefix, strings.ToUpper(suffix))
}
