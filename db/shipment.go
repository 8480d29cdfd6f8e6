package db

import (
	"database/sql"
	"time"

	"bitbucket.org/cargolink/backend/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ConstShipmentStatuses = struct {
	Open    models.ShipmentStatus
	Matched models.ShipmentStatus
	Closed  models.ShipmentStatus
}{
	Open: models.ShipmentStatus{
		ID:   1,
		Name: "Open",
	},
	Matched: models.ShipmentStatus{
		ID:   2,
		Name: "Matched",
	},
	Closed: models.ShipmentStatus{
		ID:   3,
		Name: "Closed",
	},
}

type ShipmentStorage interface {
	InsertShipment(shipperID int, opts *models.InsertShipmentOpts, pickupDate time.Time) (int, error)
	GetShipmentByID(shipmentID int) (*models.Shipment, error)
	GetShipments(*models.GetShipmentsOpts) (*models.ShipmentsStruct, error)
}

const (
	insertShipment = `
	INSERT
		shipment
	SET
		shipper_id = :shipper_id,
		origin = :origin,
		destination = :destination,
		cargo = :cargo,
		weight_kg = :weight_kg,
		pickup_date = :pickup_date,
		price = :price,
		currency = :currency,
		status_id = :status_id
	`

	getShipment = `
	SELECT
		shipment.id,
		shipment.origin,
		shipment.destination,
		shipment.cargo,
		shipment.weight_kg,
		shipment.pickup_date,
		shipment.price,
		shipment.currency,
		shipment.created,
		shipment.updated,
		shipment_status.id,
		shipment_status.name,
		user.id,
		user.company,
		user.email
	FROM
		shipment
	INNER JOIN
		shipment_status ON (shipment_status.id = shipment.status_id)
	INNER JOIN
		user ON (user.id = shipment.shipper_id)
	`

	getShipmentByID = getShipment + `
	WHERE
		shipment.id = :shipment_id
	`
)

func (db *DB) InsertShipment(shipperID int, opts *models.InsertShipmentOpts, pickupDate time.Time) (int, error) {
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

	stmt, newErr := tx.PrepareNamed(insertShipment)
	if newErr != nil {
		err = newErr
		return 0, err
	}

	args := map[string]interface{}{
		"shipper_id":  shipperID,
		"origin":      opts.Origin,
		"destination": opts.Destination,
		"cargo":       opts.Cargo,
		"weight_kg":   opts.WeightKg,
		"pickup_date": pickupDate,
		"price":       opts.Price,
		"currency":    opts.Currency,
		"status_id":   ConstShipmentStatuses.Open.ID,
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

func (db *DB) GetShipmentByID(shipmentID int) (*models.Shipment, error) {
	stmt, err := db.PrepareNamed(getShipmentByID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"shipment_id": shipmentID,
	}

	row := stmt.QueryRow(args)

	shipment, err := scanShipment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return shipment, nil
}

func scanShipment(row rowScanner) (*models.Shipment, error) {
	var (
		shipment models.Shipment
		status   models.ShipmentStatus
		shipper  models.User
	)

	if err := row.Scan(
		&shipment.ID,
		&shipment.Origin,
		&shipment.Destination,
		&shipment.Cargo,
		&shipment.WeightKg,
		&shipment.PickupDate,
		&shipment.Price,
		&shipment.Currency,
		&shipment.Created,
		&shipment.Updated,
		&status.ID,
		&status.Name,
		&shipper.ID,
		&shipper.Company,
		&shipper.Email,
	); err != nil {
		return nil, err
	}

	shipment.Status = &status
	shipment.Shipper = &shipper

	return &shipment, nil
}

func (db *DB) GetShipments(opts *models.GetShipmentsOpts) (*models.ShipmentsStruct, error) {
	query := getShipment + `
	WHERE 1 = 1`
	var args []interface{}

	if len(opts.ShipperIDs) > 0 {
		query += ` AND shipment.shipper_id IN (?)`
		args = append(args, opts.ShipperIDs)
	}
	if len(opts.StatusIDs) > 0 {
		query += ` AND shipment.status_id IN (?)`
		args = append(args, opts.StatusIDs)
	}
	if len(opts.Origins) > 0 {
		query += ` AND shipment.origin IN (?)`
		args = append(args, opts.Origins)
	}
	if len(opts.Destinations) > 0 {
		query += ` AND shipment.destination IN (?)`
		args = append(args, opts.Destinations)
	}
	if opts.CreatedFrom != "" {
		query += ` AND shipment.created >= ?`
		args = append(args, opts.CreatedFrom)
	}
	if opts.CreatedTo != "" {
		query += ` AND shipment.created <= ?`
		args = append(args, opts.CreatedTo)
	}

	query += `
	ORDER BY shipment.created DESC`

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

	result := models.ShipmentsStruct{}
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}

		result.Shipments = append(result.Shipments, *shipment)
	}

	result.Total = len(result.Shipments)

	return &result, rows.Err()
}
