// Command seed-admin creates or updates an admin account.
//
//	seed-admin -email admin@example.com -name "Studio Admin" -phone 9876543210
//
// The password is read from -password or, preferably, ADMIN_PASSWORD.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"interiorly/internal/config"
	"interiorly/internal/database"
	"interiorly/internal/models"
	"interiorly/internal/repositories"
	"interiorly/internal/utils"
)

type seedInput struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required,max=100"`
	Phone    string `validate:"omitempty,mobile"`
	Password string `validate:"required,min=8"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var in seedInput
	var inactive bool
	flag.StringVar(&in.Email, "email", "", "admin email (required)")
	flag.StringVar(&in.Name, "name", "Admin", "display name")
	flag.StringVar(&in.Phone, "phone", "", "mobile number for SMS codes")
	flag.StringVar(&in.Password, "password", os.Getenv("ADMIN_PASSWORD"), "admin password")
	flag.BoolVar(&inactive, "inactive", false, "create the account disabled")
	flag.Parse()

	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	if err := utils.Validate.Struct(in); err != nil {
		log.Fatal().Msg(utils.ValidationMessage(err))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer db.Close()

	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure indexes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to hash password")
	}

	admin, err := repositories.NewAdminRepository(db).Upsert(ctx, &models.Admin{
		Email:    in.Email,
		Name:     in.Name,
		Phone:    in.Phone,
		Password: string(hash),
		IsActive: !inactive,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to save admin")
	}

	log.Info().Str("id", admin.ID.Hex()).Str("email", admin.Email).Bool("active", admin.IsActive).Msg("Admin saved")
}
