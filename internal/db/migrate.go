package db

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zulandar/fleetboard/internal/models"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.CarModel{},
		&models.TrainCar{},
		&models.Marriage{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Seed upserts a small development fleet: three batches, a spread of
// statuses, and marriages for the batches that run as fixed units. Meant
// for local work against a sqlite database, not production.
func Seed(db *gorm.DB) error {
	batches := []models.CarModel{
		{BatchID: 1, CommonName: "Mark I", Manufacturer: "UTDC", ManufactureLocation: "Kingston, Ontario", YearsManufactured: "1984-1991", FullName: "UTDC ICTS Mark I"},
		{BatchID: 2, CommonName: "Mark II", Manufacturer: "Bombardier", ManufactureLocation: "Thunder Bay, Ontario", YearsManufactured: "2000-2009", FullName: "Bombardier ART Mark II"},
		{BatchID: 3, CommonName: "Mark V", Manufacturer: "Alstom", ManufactureLocation: "Kingston, Ontario", YearsManufactured: "2023-", FullName: "Alstom Innovia 300 Mark V"},
	}
	for _, b := range batches {
		if err := upsert(db, &b, "batch_id"); err != nil {
			return fmt.Errorf("db: seed batch %d: %w", b.BatchID, err)
		}
	}

	var cars []models.TrainCar
	addCar := func(id int64, batch int64, status, delivered, entered string) {
		name := fmt.Sprintf("Car %03d", id)
		if id >= 6000 {
			name = fmt.Sprintf("Car %04d", id)
		}
		car := models.TrainCar{CarID: id, Name: &name, Status: status, BatchID: &batch}
		if delivered != "" {
			car.DeliveryDate = &delivered
		}
		if entered != "" {
			car.EnterServiceDate = &entered
		}
		cars = append(cars, car)
	}
	for id := int64(1); id <= 30; id++ {
		status := models.StatusInService
		if id%9 == 0 {
			status = models.StatusRetired
		}
		addCar(id, 1, status, "1985-04-11", "1986-01-03")
	}
	for id := int64(201); id <= 220; id++ {
		addCar(id, 2, models.StatusInService, "2002-06-20", "2002-08-30")
	}
	for id := int64(6000); id <= 6024; id++ {
		status := models.StatusInTesting
		if id < 6010 {
			status = models.StatusInService
		}
		addCar(id, 3, status, "2024-09-15", "")
	}
	for _, c := range cars {
		if err := upsert(db, &c, "car_id"); err != nil {
			return fmt.Errorf("db: seed car %d: %w", c.CarID, err)
		}
	}

	var marriages []models.Marriage
	next := int64(1)
	for base := int64(201); base <= 219; base += 2 {
		marriages = append(marriages, models.Marriage{
			MarriageID: next, BatchID: 2,
			CarIDs: models.IntList{base, base + 1}, GroupSize: 2,
		})
		next++
	}
	for base := int64(6000); base <= 6020; base += 5 {
		marriages = append(marriages, models.Marriage{
			MarriageID: next, BatchID: 3,
			CarIDs: models.IntList{base, base + 1, base + 2, base + 3, base + 4}, GroupSize: 5,
		})
		next++
	}
	for _, m := range marriages {
		if err := upsert(db, &m, "marriage_id"); err != nil {
			return fmt.Errorf("db: seed marriage %d: %w", m.MarriageID, err)
		}
	}

	return nil
}

// upsert creates the row or replaces all columns on primary key conflict.
func upsert(db *gorm.DB, value interface{}, key string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: key}},
		UpdateAll: true,
	}).Create(value).Error
}
