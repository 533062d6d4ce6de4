// Package roster builds the car-listing queries behind the fleet API and
// shapes their results into the response envelope.
package roster

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/zulandar/fleetboard/internal/models"
)

// Pagination bounds for the car listing.
const (
	DefaultLimit = 50
	MaxLimit     = 100
)

// Params holds the request parameters for a car listing.
type Params struct {
	Search          string
	GroupByMarriage bool
	Limit           int
	Offset          int
}

// Clamp normalizes pagination to limit in [1,100] and offset >= 0.
// Out-of-range values are adjusted, never rejected.
func (p Params) Clamp() Params {
	if p.Limit < 1 {
		p.Limit = 1
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// CarRow holds one car joined to its batch for display. Model fields are
// nil when the car has no batch.
type CarRow struct {
	CarID               int64   `json:"car_id"`
	Name                *string `json:"name"`
	Status              string  `json:"status"`
	DeliveryDate        *string `json:"delivery_date"`
	EnterServiceDate    *string `json:"enter_service_date"`
	BatchID             *int64  `json:"batch_id"`
	Notes               *string `json:"notes"`
	CommonName          *string `json:"common_name"`
	Manufacturer        *string `json:"manufacturer"`
	ManufactureLocation *string `json:"manufacture_location"`
	YearsManufactured   *string `json:"years_manufactured"`
	FullName            *string `json:"full_name"`
}

// Result is the response envelope for GET /api/train-cars. Marriages is nil
// unless grouping was requested; pagination fields are echoed either way.
type Result struct {
	Data        []CarRow          `json:"data"`
	Total       int64             `json:"total"`
	Limit       int               `json:"limit"`
	Offset      int               `json:"offset"`
	LastUpdated *time.Time        `json:"lastUpdated"`
	Marriages   []models.Marriage `json:"marriages"`
}

// carColumns is the joined projection shared by the page and full-listing
// queries.
const carColumns = "train_cars.car_id, train_cars.name, train_cars.status, " +
	"train_cars.delivery_date, train_cars.enter_service_date, " +
	"train_cars.batch_id, train_cars.notes, " +
	"car_models.common_name, car_models.manufacturer, " +
	"car_models.manufacture_location, car_models.years_manufactured, " +
	"car_models.full_name"

const joinModels = "LEFT JOIN car_models ON car_models.batch_id = train_cars.batch_id"

// List executes the listing queries for the given parameters and assembles
// the response envelope. The data, count, last-modified, and (when grouping)
// marriage lookups run concurrently and are jointly awaited; any failure
// fails the whole request.
//
// With GroupByMarriage set, search is deliberately ignored and pagination is
// not applied: marriage membership must be resolved before filtering can
// decide whether a marriage appears, so the client owns both steps.
func List(ctx context.Context, db *gorm.DB, p Params) (*Result, error) {
	p = p.Clamp()
	res := &Result{
		Data:   []CarRow{},
		Limit:  p.Limit,
		Offset: p.Offset,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		last, err := lastUpdated(db.WithContext(ctx))
		if err != nil {
			return err
		}
		res.LastUpdated = last
		return nil
	})

	if p.GroupByMarriage {
		g.Go(func() error {
			return carQuery(db.WithContext(ctx)).Scan(&res.Data).Error
		})
		g.Go(func() error {
			return db.WithContext(ctx).Model(&models.TrainCar{}).Count(&res.Total).Error
		})
		g.Go(func() error {
			var marriages []models.Marriage
			if err := db.WithContext(ctx).Order("marriage_id ASC").Find(&marriages).Error; err != nil {
				return err
			}
			res.Marriages = marriages
			return nil
		})
	} else {
		g.Go(func() error {
			q := applySearch(carQuery(db.WithContext(ctx)), p.Search)
			return q.Limit(p.Limit).Offset(p.Offset).Scan(&res.Data).Error
		})
		g.Go(func() error {
			q := db.WithContext(ctx).Model(&models.TrainCar{})
			if p.Search != "" {
				q = applySearch(q.Joins(joinModels), p.Search)
			}
			return q.Count(&res.Total).Error
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("roster: list cars: %w", err)
	}
	return res, nil
}

// carQuery builds the joined listing query in car-id order.
func carQuery(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.TrainCar{}).
		Select(carColumns).
		Joins(joinModels).
		Order("train_cars.car_id ASC")
}

// applySearch adds the OR-combined case-insensitive substring filter over
// every searchable column. The car id is matched both as its zero-padded
// form, because that is how ids are displayed, and as its raw decimal form,
// because users type either.
func applySearch(tx *gorm.DB, term string) *gorm.DB {
	if term == "" {
		return tx
	}
	pattern := "%" + strings.ToLower(term) + "%"
	cond := paddedIDExpr(tx) + " LIKE ?" +
		" OR CAST(train_cars.car_id AS CHAR) LIKE ?" +
		" OR LOWER(train_cars.name) LIKE ?" +
		" OR LOWER(train_cars.status) LIKE ?" +
		" OR LOWER(train_cars.delivery_date) LIKE ?" +
		" OR LOWER(train_cars.enter_service_date) LIKE ?" +
		" OR LOWER(train_cars.notes) LIKE ?" +
		" OR LOWER(car_models.common_name) LIKE ?"
	return tx.Where(cond,
		pattern, pattern, pattern, pattern, pattern, pattern, pattern, pattern)
}

// paddedIDExpr returns the SQL expression for the zero-padded 3-digit car
// id as text. MySQL and SQLite spell this differently.
func paddedIDExpr(tx *gorm.DB) string {
	if tx.Dialector.Name() == "sqlite" {
		return "printf('%03d', train_cars.car_id)"
	}
	return "LPAD(CAST(train_cars.car_id AS CHAR), 3, '0')"
}

// lastUpdated returns the newest car modification time, or nil for an empty
// fleet.
func lastUpdated(tx *gorm.DB) (*time.Time, error) {
	var car models.TrainCar
	err := tx.Order("updated_at DESC").Limit(1).First(&car).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t := car.UpdatedAt
	return &t, nil
}
