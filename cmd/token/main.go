// Package main issues admin tokens for the station API.
//
// Usage:
//
//	JWT_SIGNING_KEY=... token -subject ops -ttl 24h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lipelix/chmu-weather/internal/auth"
	"github.com/lipelix/chmu-weather/internal/config"
)

var (
	subject = flag.String("subject", "admin", "Token subject")
	role    = flag.String("role", auth.RoleAdmin, "Token role")
	ttl     = flag.Duration("ttl", auth.DefaultTokenExpiry, "Token lifetime")
)

func main() {
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.JWTSigningKey == "" {
		log.Fatal().Msg("JWT_SIGNING_KEY is not set")
	}

	svc := auth.NewJWTService(auth.JWTConfig{
		SigningKey:  cfg.JWTSigningKey,
		TokenExpiry: *ttl,
	})

	token, expiresAt, err := svc.GenerateToken(*subject, *role)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to generate token")
	}

	log.Info().
		Str("subject", *subject).
		Str("role", *role).
		Time("expires_at", expiresAt.UTC().Truncate(time.Second)).
		Msg("token issued")

	fmt.Println(token)
}
