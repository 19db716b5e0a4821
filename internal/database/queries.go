package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"delivery-console/internal/geo"
	"delivery-console/internal/pricing"
	"delivery-console/internal/schedule"
	"delivery-console/internal/zone"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the hand-written query layer over the fulfillment
// configuration tables.
type Queries struct {
	db DBTX
}

// New creates Queries over a pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const listDeliveryZonesSQL = `
	SELECT id, name, polygon, price::text
	FROM delivery_zones
	ORDER BY position ASC, name ASC`

// ListDeliveryZones returns all zones in resolution priority order. The
// polygon ring is stored as a JSONB array of {lat,lng} points.
func (q *Queries) ListDeliveryZones(ctx context.Context) ([]zone.DeliveryZone, error) {
	rows, err := q.db.Query(ctx, listDeliveryZonesSQL)
	if err != nil {
		return nil, fmt.Errorf("list delivery zones: %w", err)
	}
	defer rows.Close()

	var zones []zone.DeliveryZone
	for rows.Next() {
		var (
			z        zone.DeliveryZone
			ring     []byte
			priceStr string
		)
		if err := rows.Scan(&z.ID, &z.Name, &ring, &priceStr); err != nil {
			return nil, fmt.Errorf("scan delivery zone: %w", err)
		}
		if err := json.Unmarshal(ring, &z.Polygon); err != nil {
			return nil, fmt.Errorf("decode polygon for zone %s: %w", z.ID, err)
		}
		if z.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("decode price for zone %s: %w", z.ID, err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

const listWorkDaysSQL = `
	SELECT date, is_working, COALESCE(start_time, ''), COALESCE(end_time, '')
	FROM work_calendar
	WHERE date >= $1
	ORDER BY date ASC
	LIMIT $2`

// ListWorkDays returns the work calendar starting at from, up to limit days.
func (q *Queries) ListWorkDays(ctx context.Context, from time.Time, limit int) ([]schedule.WorkDay, error) {
	rows, err := q.db.Query(ctx, listWorkDaysSQL, from, limit)
	if err != nil {
		return nil, fmt.Errorf("list work days: %w", err)
	}
	defer rows.Close()

	var days []schedule.WorkDay
	for rows.Next() {
		var (
			d    schedule.WorkDay
			date time.Time
		)
		if err := rows.Scan(&date, &d.IsWorking, &d.Start, &d.End); err != nil {
			return nil, fmt.Errorf("scan work day: %w", err)
		}
		d.Date = date.Format(schedule.DateLayout)
		days = append(days, d)
	}
	return days, rows.Err()
}

const getOrderSettingsSQL = `
	SELECT default_price::text, free_delivery, free_threshold::text, interval_minutes, NOW()
	FROM order_settings
	LIMIT 1`

// GetOrderSettings returns the single delivery settings row, stamped with
// the database server time so clients anchor "today" consistently.
func (q *Queries) GetOrderSettings(ctx context.Context) (pricing.Settings, error) {
	var (
		s            pricing.Settings
		defaultPrice string
		threshold    string
	)
	err := q.db.QueryRow(ctx, getOrderSettingsSQL).Scan(
		&defaultPrice, &s.FreeDelivery, &threshold, &s.IntervalMinutes, &s.ServerTime)
	if err != nil {
		return pricing.Settings{}, fmt.Errorf("get order settings: %w", err)
	}
	if s.DefaultPrice, err = decimal.NewFromString(defaultPrice); err != nil {
		return pricing.Settings{}, fmt.Errorf("decode default price: %w", err)
	}
	if s.FreeThreshold, err = decimal.NewFromString(threshold); err != nil {
		return pricing.Settings{}, fmt.Errorf("decode free threshold: %w", err)
	}
	return s, nil
}

const upsertZoneSQL = `
	INSERT INTO delivery_zones (id, name, polygon, price, position)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		polygon = EXCLUDED.polygon,
		price = EXCLUDED.price,
		position = EXCLUDED.position`

// UpsertDeliveryZone inserts or updates a zone; used by the seeder.
func (q *Queries) UpsertDeliveryZone(ctx context.Context, z zone.DeliveryZone, position int) error {
	ring, err := json.Marshal(polygonForStorage(z.Polygon))
	if err != nil {
		return fmt.Errorf("encode polygon: %w", err)
	}
	_, err = q.db.Exec(ctx, upsertZoneSQL, z.ID, z.Name, ring, z.Price, position)
	return err
}

const upsertWorkDaySQL = `
	INSERT INTO work_calendar (date, is_working, start_time, end_time)
	VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
	ON CONFLICT (date) DO UPDATE SET
		is_working = EXCLUDED.is_working,
		start_time = EXCLUDED.start_time,
		end_time = EXCLUDED.end_time`

// UpsertWorkDay inserts or updates one calendar day; used by the seeder.
func (q *Queries) UpsertWorkDay(ctx context.Context, d schedule.WorkDay) error {
	date, err := time.Parse(schedule.DateLayout, d.Date)
	if err != nil {
		return fmt.Errorf("parse work day date %q: %w", d.Date, err)
	}
	_, err = q.db.Exec(ctx, upsertWorkDaySQL, date, d.IsWorking, d.Start, d.End)
	return err
}

const upsertSettingsSQL = `
	INSERT INTO order_settings (id, default_price, free_delivery, free_threshold, interval_minutes)
	VALUES (TRUE, $1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE SET
		default_price = EXCLUDED.default_price,
		free_delivery = EXCLUDED.free_delivery,
		free_threshold = EXCLUDED.free_threshold,
		interval_minutes = EXCLUDED.interval_minutes`

// UpsertOrderSettings replaces the single settings row; used by the seeder.
func (q *Queries) UpsertOrderSettings(ctx context.Context, s pricing.Settings) error {
	_, err := q.db.Exec(ctx, upsertSettingsSQL,
		s.DefaultPrice, s.FreeDelivery, s.FreeThreshold, s.IntervalMinutes)
	return err
}

func polygonForStorage(ring []geo.Coordinate) []geo.Coordinate {
	if ring == nil {
		return []geo.Coordinate{}
	}
	return ring
}
