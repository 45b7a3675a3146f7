package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-booking/internal/config"
	"github.com/hackgods/practice-booking/internal/db"
	"github.com/hackgods/practice-booking/internal/logging"
	redisclient "github.com/hackgods/practice-booking/internal/redis"
	"github.com/hackgods/practice-booking/internal/schedule"
)

// seed creates providers with randomized schedules and prints their ids to
// stdout, one per line. Logs go to stderr.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	count := 10
	if v := os.Getenv("SEED_PROVIDERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = n
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	store := schedule.NewStore(schedule.NewPgRepository(pool), redisclient.NewLocalLocker(), logger)
	today := schedule.DateOf(time.Now().In(cfg.Location))

	for i := 0; i < count; i++ {
		providerID, err := seedProvider(ctx, store, today)
		if err != nil {
			logger.Fatal("seed provider", zap.Int("index", i), zap.Error(err))
		}
		fmt.Println(providerID)
	}

	logger.Info("seed complete", zap.Int("providers", count))
}

func seedProvider(ctx context.Context, store *schedule.Store, today schedule.DateOnly) (uuid.UUID, error) {
	providerID := uuid.New()
	if _, err := store.Create(ctx, providerID); err != nil {
		return uuid.Nil, fmt.Errorf("create: %w", err)
	}

	durations := []int{30, 45, 60, 90}
	gaps := []int{0, 5, 10, 15}

	if _, err := store.SetAppointmentDuration(ctx, providerID, durations[gofakeit.Number(0, 2)]); err != nil {
		return uuid.Nil, fmt.Errorf("set duration: %w", err)
	}
	if _, err := store.SetGapMinutes(ctx, providerID, gaps[gofakeit.Number(0, len(gaps)-1)]); err != nil {
		return uuid.Nil, fmt.Errorf("set gap: %w", err)
	}

	for _, day := range schedule.DisplayOrder[:5] {
		hours := schedule.WorkingHours{
			Start: schedule.MustTimeOfDay(gofakeit.Number(7, 10), 0),
			End:   schedule.MustTimeOfDay(gofakeit.Number(15, 19), 0),
		}
		if _, err := store.UpdateWeekday(ctx, providerID, day, nil, &hours); err != nil {
			return uuid.Nil, fmt.Errorf("set %s hours: %w", day, err)
		}
	}
	if gofakeit.Bool() {
		open := true
		hours := schedule.WorkingHours{Start: schedule.MustTimeOfDay(10, 0), End: schedule.MustTimeOfDay(14, 0)}
		if _, err := store.UpdateWeekday(ctx, providerID, time.Saturday, &open, &hours); err != nil {
			return uuid.Nil, fmt.Errorf("open saturday: %w", err)
		}
	}

	for n := gofakeit.Number(1, 3); n > 0; n-- {
		name := gofakeit.BuzzWord() + " session"
		desc := gofakeit.JobTitle()
		price := int64(gofakeit.Number(0, 300)) * 100
		if _, _, err := store.AddServiceType(ctx, providerID, name, durations[gofakeit.Number(0, len(durations)-1)], price, &desc); err != nil {
			return uuid.Nil, fmt.Errorf("add service type: %w", err)
		}
	}

	// Lunch on a few of the next two weeks' days.
	for d := 0; d < 14; d++ {
		if gofakeit.Number(0, 2) != 0 {
			continue
		}
		start := schedule.MustTimeOfDay(gofakeit.Number(11, 13), 0)
		if _, _, err := store.AddBreak(ctx, providerID, today.AddDays(d), start, start+45, "Lunch"); err != nil {
			return uuid.Nil, fmt.Errorf("add break: %w", err)
		}
	}

	return providerID, nil
}
