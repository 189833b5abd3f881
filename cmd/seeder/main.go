package main

import (
	"context"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/mauv0809/pairup/internal/database"
	"github.com/mauv0809/pairup/internal/lifecycle"
	"github.com/mauv0809/pairup/internal/matchmaking"
	"github.com/mauv0809/pairup/internal/metrics"
	"github.com/mauv0809/pairup/internal/notifier"
	"github.com/mauv0809/pairup/internal/participant"
	"github.com/mauv0809/pairup/internal/processor"
	"github.com/mauv0809/pairup/internal/store"
	"github.com/prometheus/client_golang/prometheus"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":    "pairup.db",
		"SEED_COUNT": "50",
	}
	for _, key := range []string{"DB_NAME", "TURSO_PRIMARY_URL", "TURSO_AUTH_TOKEN", "SEED_COUNT"} {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()

	count, err := strconv.Atoi(cfg["SEED_COUNT"])
	if err != nil || count <= 0 {
		log.Fatalf("Invalid SEED_COUNT %q", cfg["SEED_COUNT"])
	}

	db, teardown, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer teardown()
	log.Info("Successfully connected to the database.")

	ctx := context.Background()
	s := store.New(db)
	metricsSvc := metrics.NewService(prometheus.NewRegistry())
	proc := processor.New(s,
		matchmaking.New(s, metricsSvc),
		lifecycle.New(s, metricsSvc),
		notifier.Multi(nil),
		metricsSvc,
		metrics.New(db),
	)

	topics, err := proc.Topics(ctx)
	if err != nil {
		log.Fatalf("Failed to load topics: %s", err)
	}
	if len(topics) == 0 {
		log.Fatal("No topics available, run the migrations first")
	}

	modes := []participant.Mode{participant.ModeOnline, participant.ModeOffline}
	log.Info("Preparing to seed participants...", "total", count)
	startTime := time.Now()

	matched := 0
	for i := 0; i < count; i++ {
		key := participant.Key{ContextID: "seed-" + uuid.NewString(), PersonID: strconv.Itoa(i + 1)}
		name := "Seeded Participant " + strconv.Itoa(i+1)

		if _, err := proc.Join(ctx, key, name); err != nil {
			log.Fatalf("Failed to join participant %s: %s", key, err)
		}
		if _, err := proc.SetMode(ctx, key, modes[rand.Intn(len(modes))]); err != nil {
			log.Fatalf("Failed to set mode for %s: %s", key, err)
		}
		picked := rand.Perm(len(topics))[:1+rand.Intn(len(topics))]
		ids := make([]int64, 0, len(picked))
		for _, idx := range picked {
			ids = append(ids, topics[idx].ID)
		}
		out, err := proc.SubmitTopics(ctx, key, ids, true)
		if err != nil {
			log.Fatalf("Failed to submit topics for %s: %s", key, err)
		}
		if out.Matched {
			matched++
		}
	}

	duration := time.Since(startTime)
	log.Info("Successfully seeded participants.", "participants", count, "meetings", matched, "duration", duration)
}
