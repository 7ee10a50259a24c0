package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/edcadet10/tikes/internal/config"
	"github.com/edcadet10/tikes/internal/infra"
	"github.com/edcadet10/tikes/internal/model"
	"github.com/edcadet10/tikes/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// seedowner bootstraps a new tenant: one Business row plus its owner user.
// Run once per shop, before the first device logs in.
//
//	seedowner -business "Boutique Carrefour" -name "Marie" -phone "+50937000001" -pin 4321 -email owner@example.ht
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		businessName = flag.String("business", "", "business name (required)")
		ownerName    = flag.String("name", "", "owner full name (required)")
		phone        = flag.String("phone", "", "owner phone, the login identifier (required)")
		pin          = flag.String("pin", "", "owner PIN (required)")
		email        = flag.String("email", "", "owner email for sync alerts")
		currency     = flag.String("currency", "HTG", "ISO currency code")
	)
	flag.Parse()

	if *businessName == "" || *ownerName == "" || *phone == "" || *pin == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*pin), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash PIN")
	}

	ctx := context.Background()

	business := &model.Business{Name: *businessName, Currency: *currency}
	if *email != "" {
		business.Email = email
	}
	if err := repository.NewBusinessRepository(db).Create(ctx, business); err != nil {
		log.Fatal().Err(err).Msg("failed to create business")
	}

	owner := &model.User{
		BusinessID: business.ID,
		Name:       *ownerName,
		Phone:      *phone,
		PinHash:    string(hash),
		Role:       model.RoleOwner,
		IsActive:   true,
	}
	if err := repository.NewUserRepository(db).Create(ctx, owner); err != nil {
		log.Fatal().Err(err).Msg("failed to create owner user")
	}

	log.Info().
		Uint("business_id", business.ID).
		Uint("user_id", owner.ID).
		Str("phone", owner.Phone).
		Msg("tenant seeded")
}
