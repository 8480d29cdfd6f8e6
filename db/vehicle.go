package db

import (
	"time"

	"bitbucket.org/cargolink/backend/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type VehicleStorage interface {
	InsertVehicle(carrierID int, opts *models.InsertVehicleOpts, availableFrom time.Time) (int, error)
	GetVehicles(*models.GetVehiclesOpts) ([]models.Vehicle, error)
}

const (
	insertVehicle = `
	INSERT
		vehicle
	SET
		carrier_id = :carrier_id,
		type = :type,
		plate = :plate,
		capacity_kg = :capacity_kg,
		location = :location,
		available_from = :available_from,
		active = 1
	`

	getVehicles = `
	SELECT
		vehicle.id,
		vehicle.type,
		vehicle.plate,
		vehicle.capacity_kg,
		vehicle.location,
		vehicle.available_from,
		vehicle.active,
		vehicle.created,
		vehicle.updated,
		user.id,
		user.company,
		user.email
	FROM
		vehicle
	INNER JOIN
		user ON (user.id = vehicle.carrier_id)
	`
)

func (db *DB) InsertVehicle(carrierID int, opts *models.InsertVehicleOpts, availableFrom time.Time) (int, error) {
	tx, err := db.NewTx()
	if err != nil {
		return 0, errors.Wrap(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}

		tx.Commit()
	}()

	stmt, newErr := tx.PrepareNamed(insertVehicle)
	if newErr != nil {
		err = newErr
		return 0, err
	}

	args := map[string]interface{}{
		"carrier_id":     carrierID,
		"type":           opts.Type,
		"plate":          opts.Plate,
		"capacity_kg":    opts.CapacityKg,
		"location":       opts.Location,
		"available_from": availableFrom,
	}

	result, newErr := stmt.Exec(args)
	if newErr != nil {
		err = newErr
		return 0, err
	}

	id, newErr := result.LastInsertId()
	if newErr != nil {
		err = newErr
		return 0, err
	}

	return int(id), nil
}

func (db *DB) GetVehicles(opts *models.GetVehiclesOpts) ([]models.Vehicle, error) {
	query := getVehicles + `
	WHERE vehicle.active = 1`
	var args []interface{}

	if len(opts.CarrierIDs) > 0 {
		query += ` AND vehicle.carrier_id IN (?)`
		args = append(args, opts.CarrierIDs)
	}
	if len(opts.Types) > 0 {
		query += ` AND vehicle.type IN (?)`
		args = append(args, opts.Types)
	}
	if len(opts.Locations) > 0 {
		query += ` AND vehicle.location IN (?)`
		args = append(args, opts.Locations)
	}
	if opts.MinCapKg > 0 {
		query += ` AND vehicle.capacity_kg >= ?`
		args = append(args, opts.MinCapKg)
	}

	query += `
	ORDER BY vehicle.available_from ASC`

	if opts.LimitTo > 0 {
		query += ` LIMIT ?, ?`
		args = append(args, opts.LimitFrom, opts.LimitTo)
	}

	query, inArgs, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(db.Rebind(query), inArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []models.Vehicle
	for rows.Next() {
		var (
			vehicle models.Vehicle
			carrier models.User
		)

		if err := rows.Scan(
			&vehicle.ID,
			&vehicle.Type,
			&vehicle.Plate,
			&vehicle.CapacityKg,
			&vehicle.Location,
			&vehicle.AvailableFrom,
			&vehicle.Active,
			&vehicle.Created,
			&vehicle.Updated,
			&carrier.ID,
			&carrier.Company,
			&carrier.Email,
		); err != nil {
			return nil, err
		}

		vehicle.Carrier = &carrier
		vehicles = append(vehicles, vehicle)
	}

	return vehicles, rows.Err()
}
