package database

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"cashcage/models"
)

var DB *gorm.DB

func Connect() {
	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	name := os.Getenv("DB_NAME")
	sslmode := os.Getenv("DB_SSLMODE")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		host, user, pass, name, port, sslmode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		logrus.Fatalf("failed to connect to database: %v", err)
	}

	DB = db
	logrus.Info("connected to database")

	autoMigrateEnv := os.Getenv("DB_AUTO_MIGRATE")
	autoMigrate, err := strconv.ParseBool(autoMigrateEnv)
	if err != nil && autoMigrateEnv != "" {
		logrus.Warnf("invalid value for DB_AUTO_MIGRATE: %s", autoMigrateEnv)
	}

	if autoMigrate {
		logrus.Info("starting auto-migration")

		if err := DB.AutoMigrate(
			&models.Cashier{},
			&models.Session{},
			&models.Transaction{},
			&models.ChipAdjustment{},
			&models.CreditAccount{},
			&models.CreditLimit{},
			&models.CreditRequest{},
			&models.Promotion{},
			&models.BonusClaim{},
		); err != nil {
			logrus.Fatalf("failed to auto-migrate database: %v", err)
		}

		logrus.Info("auto migration completed")
	}
}
