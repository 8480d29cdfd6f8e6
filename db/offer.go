package db

import (
	"database/sql"

	"bitbucket.org/cargolink/backend/models"
	"github.com/pkg/errors"
)

var ConstOfferStatuses = struct {
	Pending  models.OfferStatus
	Accepted models.OfferStatus
	Rejected models.OfferStatus
}{
	Pending: models.OfferStatus{
		ID:   1,
		Name: "Pending",
	},
	Accepted: models.OfferStatus{
		ID:   2,
		Name: "Accepted",
	},
	Rejected: models.OfferStatus{
		ID:   3,
		Name: "Rejected",
	},
}

type OfferStorage interface {
	InsertOffer(shipmentID int, carrierID int, reference string, opts *models.InsertOfferOpts) (int, error)
	GetOfferByID(offerID int) (*models.Offer, error)
	GetOffersByShipmentID(shipmentID int) ([]models.Offer, error)
	AcceptOffer(offerID int, shipmentID int) error
}

const (
	insertOffer = `
	INSERT
		offer
	SET
		shipment_id = :shipment_id,
		carrier_id = :carrier_id,
		reference = :reference,
		price = :price,
		currency = :currency,
		status_id = :status_id
	`

	getOffer = `
	SELECT
		offer.id,
		offer.reference,
		offer.price,
		offer.currency,
		offer.created,
		offer.updated,
		offer_status.id,
		offer_status.name,
		user.id,
		user.company,
		user.email,
		shipment.id,
		shipment.origin,
		shipment.destination,
		shipment.status_id
	FROM
		offer
	INNER JOIN
		offer_status ON (offer_status.id = offer.status_id)
	INNER JOIN
		user ON (user.id = offer.carrier_id)
	INNER JOIN
		shipment ON (shipment.id = offer.shipment_id)
	`

	getOfferByID = getOffer + `
	WHERE
		offer.id = :offer_id
	`

	getOffersByShipmentID = getOffer + `
	WHERE
		offer.shipment_id = :shipment_id
	ORDER BY
		offer.created ASC
	`

	acceptOffer = `
	UPDATE
		offer
	SET
		status_id = :accepted_status_id,
		updated = current_timestamp()
	WHERE
		id = :offer_id AND
		status_id = :pending_status_id
	`

	rejectSiblingOffers = `
	UPDATE
		offer
	SET
		status_id = :rejected_status_id,
		updated = current_timestamp()
	WHERE
		shipment_id = :shipment_id AND
		id != :offer_id AND
		status_id = :pending_status_id
	`

	matchShipment = `
	UPDATE
		shipment
	SET
		status_id = :matched_status_id,
		updated = current_timestamp()
	WHERE
		id = :shipment_id AND
		status_id = :open_status_id
	`
)

func (db *DB) InsertOffer(shipmentID int, carrierID int, reference string, opts *models.InsertOfferOpts) (int, error) {
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

	stmt, newErr := tx.PrepareNamed(insertOffer)
	if newErr != nil {
		err = newErr
		return 0, err
	}

	args := map[string]interface{}{
		"shipment_id": shipmentID,
		"carrier_id":  carrierID,
		"reference":   reference,
		"price":       opts.Price,
		"currency":    opts.Currency,
		"status_id":   ConstOfferStatuses.Pending.ID,
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

func (db *DB) GetOfferByID(offerID int) (*models.Offer, error) {
	stmt, err := db.PrepareNamed(getOfferByID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"offer_id": offerID,
	}

	row := stmt.QueryRow(args)

	offer, err := scanOffer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return offer, nil
}

func scanOffer(row rowScanner) (*models.Offer, error) {
	var (
		offer    models.Offer
		status   models.OfferStatus
		carrier  models.User
		shipment models.Shipment
		shStatus models.ShipmentStatus
	)

	if err := row.Scan(
		&offer.ID,
		&offer.Reference,
		&offer.Price,
		&offer.Currency,
		&offer.Created,
		&offer.Updated,
		&status.ID,
		&status.Name,
		&carrier.ID,
		&carrier.Company,
		&carrier.Email,
		&shipment.ID,
		&shipment.Origin,
		&shipment.Destination,
		&shStatus.ID,
	); err != nil {
		return nil, err
	}

	offer.Status = &status
	offer.Carrier = &carrier
	shipment.Status = &shStatus
	offer.Shipment = &shipment

	return &offer, nil
}

func (db *DB) GetOffersByShipmentID(shipmentID int) ([]models.Offer, error) {
	stmt, err := db.PrepareNamed(getOffersByShipmentID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"shipment_id": shipmentID,
	}

	rows, err := stmt.Query(args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}

		offers = append(offers, *offer)
	}

	return offers, rows.Err()
}

// AcceptOffer accepts one offer, rejects its pending siblings and marks the
// shipment matched, all in one transaction.
func (db *DB) AcceptOffer(offerID int, shipmentID int) error {
	tx, err := db.NewTx()
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}

		tx.Commit()
	}()

	newErr := db.acceptOfferTx(tx, offerID, shipmentID)
	if newErr != nil {
		err = newErr
		return err
	}

	return nil
}

func (db *DB) acceptOfferTx(tx Tx, offerID int, shipmentID int) error {
	stmt, err := tx.PrepareNamed(acceptOffer)
	if err != nil {
		return err
	}

	result, err := stmt.Exec(map[string]interface{}{
		"offer_id":           offerID,
		"accepted_status_id": ConstOfferStatuses.Accepted.ID,
		"pending_status_id":  ConstOfferStatuses.Pending.ID,
	})
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if int(rowsAffected) != 1 {
		return errors.Errorf("offer %d is not pending", offerID)
	}

	stmt, err = tx.PrepareNamed(rejectSiblingOffers)
	if err != nil {
		return err
	}

	if _, err := stmt.Exec(map[string]interface{}{
		"shipment_id":        shipmentID,
		"offer_id":           offerID,
		"rejected_status_id": ConstOfferStatuses.Rejected.ID,
		"pending_status_id":  ConstOfferStatuses.Pending.ID,
	}); err != nil {
		return err
	}

	stmt, err = tx.PrepareNamed(matchShipment)
	if err != nil {
		return err
	}

	result, err = stmt.Exec(map[string]interface{}{
		"shipment_id":       shipmentID,
		"matched_status_id": ConstShipmentStatuses.Matched.ID,
		"open_status_id":    ConstShipmentStatuses.Open.ID,
	})
	if err != nil {
		return err
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return err
	}

	if int(rowsAffected) != 1 {
		return errors.Errorf("shipment %d is not open", shipmentID)
	}

	return nil
}
