package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zencounsel/counsel-api/internal/config"
	"github.com/zencounsel/counsel-api/internal/storage"
	"github.com/zencounsel/counsel-api/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	file := flag.String("file", "counsellors.yaml", "counsellor records (YAML or JSON)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	log.Logger = logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		JSON:       cfg.Log.JSON,
	}).Zerolog()

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("failed to read seed file")
	}
	counsellors, err := parseCounsellors(data, time.Now().UTC())
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("invalid seed file")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stores, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer stores.Close()
	if !stores.Shared() {
		log.Fatal().Str("driver", cfg.Store.Driver).Msg("seeding the memory store has no lasting effect")
	}

	log.Info().Int("count", len(counsellors)).Msg("seeding counsellors")
	failed := 0
	for _, c := range counsellors {
		if err := stores.Counsellors.Upsert(ctx, c); err != nil {
			failed++
			log.Error().Err(err).Str("id", c.ID).Str("name", c.Name).Msg("failed to upsert counsellor")
			continue
		}
		log.Info().Str("id", c.ID).Str("name", c.Name).Msg("upserted counsellor")
	}
	if failed > 0 {
		log.Fatal().Int("failed", failed).Msg("seeding incomplete")
	}
	log.Info().Msg("seeding complete")
}
