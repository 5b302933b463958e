package db

import (
	"log"
	"os"

	"campusfound/internal/models"
	"campusfound/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=campusfound port=5432 sslmode=disable"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	if err := Seed(DB); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
}

// Migrate creates or updates the schema for all models.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Location{},
		&models.ItemReport{},
		&models.Claim{},
	)
}

// Seed creates the default admin account and reference data. Idempotent:
// existing rows are left alone, so it is safe to run on every boot.
func Seed(gdb *gorm.DB) error {
	if err := seedAdmin(gdb); err != nil {
		return err
	}
	return seedReferenceData(gdb)
}

func seedAdmin(gdb *gorm.DB) error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@lostfound.com"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	var count int64
	if err := gdb.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		Username: "admin",
		Email:    email,
		Password: hash,
		Role:     models.RoleAdmin,
	}
	if err := gdb.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("Seeded admin account %s", email)
	return nil
}

func seedReferenceData(gdb *gorm.DB) error {
	var count int64
	if err := gdb.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		categories := []models.Category{
			{Name: "Electronics"},
			{Name: "Clothing"},
			{Name: "Documents"},
			{Name: "Keys"},
			{Name: "Other"},
		}
		if err := gdb.Create(&categories).Error; err != nil {
			return err
		}
		log.Println("Seeded default categories")
	}

	if err := gdb.Model(&models.Location{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		locations := []models.Location{
			{Name: "Library"},
			{Name: "Cafeteria"},
			{Name: "Gym"},
			{Name: "Lecture Hall"},
			{Name: "Dormitory"},
		}
		if err := gdb.Create(&locations).Error; err != nil {
			return err
		}
		log.Println("Seeded default locations")
	}

	return nil
}
