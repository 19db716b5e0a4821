package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"delivery-console/internal/auth"
	"delivery-console/internal/config"
	"delivery-console/internal/database"
	"delivery-console/internal/enum"
	"delivery-console/internal/geo"
	"delivery-console/internal/pricing"
	"delivery-console/internal/schedule"
	"delivery-console/internal/zone"
)

// Seeds demo fulfillment configuration: two delivery zones, a 7-day work
// calendar and the pricing settings, plus a dev operator token.
func main() {
	printToken := flag.Bool("token", true, "print a dev operator token")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	queries := database.New(db.Pool)

	zones := []zone.DeliveryZone{
		{
			ID:   uuid.New(),
			Name: "Center",
			Polygon: []geo.Coordinate{
				{Lat: 55.75, Lng: 37.58}, {Lat: 55.75, Lng: 37.66},
				{Lat: 55.77, Lng: 37.66}, {Lat: 55.77, Lng: 37.58},
			},
			Price: decimal.NewFromInt(150),
		},
		{
			ID:   uuid.New(),
			Name: "Greater ring",
			Polygon: []geo.Coordinate{
				{Lat: 55.70, Lng: 37.50}, {Lat: 55.70, Lng: 37.75},
				{Lat: 55.82, Lng: 37.75}, {Lat: 55.82, Lng: 37.50},
			},
			Price: decimal.NewFromInt(300),
		},
	}
	for i, z := range zones {
		if err := queries.UpsertDeliveryZone(ctx, z, i); err != nil {
			log.Fatal("failed to seed zone", zap.String("zone", z.Name), zap.Error(err))
		}
	}
	log.Info("zones seeded", zap.Int("count", len(zones)))

	today := time.Now()
	for i := 0; i < 7; i++ {
		date := today.AddDate(0, 0, i)
		day := schedule.WorkDay{
			Date:      date.Format(schedule.DateLayout),
			IsWorking: date.Weekday() != time.Monday,
			Start:     "10:00",
			End:       "22:00",
		}
		if !day.IsWorking {
			day.Start, day.End = "", ""
		}
		if err := queries.UpsertWorkDay(ctx, day); err != nil {
			log.Fatal("failed to seed work day", zap.String("date", day.Date), zap.Error(err))
		}
	}
	log.Info("work calendar seeded")

	settings := pricing.Settings{
		DefaultPrice:    decimal.NewFromInt(400),
		FreeDelivery:    true,
		FreeThreshold:   decimal.NewFromInt(2500),
		IntervalMinutes: 60,
	}
	if err := queries.UpsertOrderSettings(ctx, settings); err != nil {
		log.Fatal("failed to seed order settings", zap.Error(err))
	}
	log.Info("order settings seeded")

	if *printToken {
		token, err := auth.GenerateToken(cfg.JWTSecret, uuid.New(), enum.UserRoleManager)
		if err != nil {
			log.Fatal("failed to generate token", zap.Error(err))
		}
		fmt.Println(token)
	}
}
