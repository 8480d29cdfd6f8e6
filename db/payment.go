package db

import (
	"database/sql"
	"time"

	"bitbucket.org/cargolink/backend/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ConstPaymentStatuses = struct {
	Pending   models.PaymentStatus
	Completed models.PaymentStatus
	Failed    models.PaymentStatus
}{
	Pending: models.PaymentStatus{
		ID:   1,
		Name: "Pending",
	},
	Completed: models.PaymentStatus{
		ID:   2,
		Name: "Completed",
	},
	Failed: models.PaymentStatus{
		ID:   3,
		Name: "Failed",
	},
}

var ConstPaymentMethods = struct {
	Card         models.PaymentMethod
	BankTransfer models.PaymentMethod
	AccountDebit models.PaymentMethod
}{
	Card: models.PaymentMethod{
		ID:   1,
		Name: "Card",
	},
	BankTransfer: models.PaymentMethod{
		ID:   2,
		Name: "Bank Transfer",
	},
	AccountDebit: models.PaymentMethod{
		ID:   3,
		Name: "Account Debit",
	},
}

// IsTerminalPaymentStatus reports whether no further status transition is
// allowed from statusID.
func IsTerminalPaymentStatus(statusID int) bool {
	return statusID == ConstPaymentStatuses.Completed.ID || statusID == ConstPaymentStatuses.Failed.ID
}

func PaymentMethodByID(methodID int) *models.PaymentMethod {
	switch methodID {
	case ConstPaymentMethods.Card.ID:
		return &ConstPaymentMethods.Card
	case ConstPaymentMethods.BankTransfer.ID:
		return &ConstPaymentMethods.BankTransfer
	case ConstPaymentMethods.AccountDebit.ID:
		return &ConstPaymentMethods.AccountDebit
	}
	return nil
}

type PaymentStorage interface {
	InsertPayment(*InsertPaymentOpts) error
	GetPaymentByID(paymentID string) (*models.Payment, error)
	GetPaymentByTransactionID(transactionID string) (*models.Payment, error)
	GetPayments(*models.GetPaymentsOpts) ([]models.Payment, error)
	UpdatePaymentReconcile(*UpdatePaymentReconcileOpts) (bool, error)
}

type InsertPaymentOpts struct {
	ID            string
	UserID        int
	OfferID       int
	MethodID      int
	StatusID      int
	Amount        int64
	Currency      string
	Description   string
	TransactionID string
	Metadata      string
}

// UpdatePaymentReconcileOpts describes one conditional write against a payment
// row. The update only applies while the row still carries ExpectedStatusID,
// which is how concurrent writers (synchronous completion vs. webhook) avoid
// lost updates. TransactionID is only ever written over NULL.
type UpdatePaymentReconcileOpts struct {
	ID               string
	ExpectedStatusID int
	StatusID         int
	PaidAt           *time.Time
	TransactionID    string
	Metadata         string
}

const (
	insertPayment = `
	INSERT
		payment
	SET
		id = :id,
		user_id = :user_id,
		offer_id = :offer_id,
		method_id = :method_id,
		status_id = :status_id,
		amount = :amount,
		currency = :currency,
		description = :description,
		transaction_id = :transaction_id,
		metadata = :metadata
	`

	getPayment = `
	SELECT
		payment.id,
		payment.amount,
		payment.currency,
		payment.description,
		payment.transaction_id,
		payment.paid_at,
		payment.metadata,
		payment.created,
		payment.updated,
		payment_method.id,
		payment_method.name,
		payment_status.id,
		payment_status.name,
		user.id,
		user.company,
		user.email
	FROM
		payment
	INNER JOIN
		payment_method ON (payment_method.id = payment.method_id)
	INNER JOIN
		payment_status ON (payment_status.id = payment.status_id)
	INNER JOIN
		user ON (user.id = payment.user_id)
	`

	getPaymentByID = getPayment + `
	WHERE
		payment.id = :payment_id
	`

	getPaymentByTransactionID = getPayment + `
	WHERE
		payment.transaction_id = :transaction_id
	`

	updatePaymentReconcile = `
	UPDATE
		payment
	SET
		status_id = :status_id,
		paid_at = :paid_at,
		transaction_id = COALESCE(transaction_id, :transaction_id),
		metadata = :metadata,
		updated = current_timestamp()
	WHERE
		id = :payment_id AND
		status_id = :expected_status_id
	`
)

func (db *DB) InsertPayment(opts *InsertPaymentOpts) error {
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

	newErr := db.insertPaymentTx(tx, opts)
	if newErr != nil {
		err = newErr
		return err
	}

	return nil
}

func (db *DB) insertPaymentTx(tx Tx, opts *InsertPaymentOpts) error {
	stmt, err := tx.PrepareNamed(insertPayment)
	if err != nil {
		return err
	}

	var offerID interface{}
	if opts.OfferID != 0 {
		offerID = opts.OfferID
	}

	var transactionID interface{}
	if opts.TransactionID != "" {
		transactionID = opts.TransactionID
	}

	args := map[string]interface{}{
		"id":             opts.ID,
		"user_id":        opts.UserID,
		"offer_id":       offerID,
		"method_id":      opts.MethodID,
		"status_id":      opts.StatusID,
		"amount":         opts.Amount,
		"currency":       opts.Currency,
		"description":    opts.Description,
		"transaction_id": transactionID,
		"metadata":       opts.Metadata,
	}

	result, err := stmt.Exec(args)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if int(rowsAffected) != 1 {
		return errors.Errorf("expected %d and inserted %d", 1, rowsAffected)
	}

	return nil
}

func (db *DB) GetPaymentByID(paymentID string) (*models.Payment, error) {
	return db.getPayment(getPaymentByID, map[string]interface{}{
		"payment_id": paymentID,
	})
}

func (db *DB) GetPaymentByTransactionID(transactionID string) (*models.Payment, error) {
	return db.getPayment(getPaymentByTransactionID, map[string]interface{}{
		"transaction_id": transactionID,
	})
}

func (db *DB) getPayment(query string, args map[string]interface{}) (*models.Payment, error) {
	stmt, err := db.PrepareNamed(query)
	if err != nil {
		return nil, err
	}

	row := stmt.QueryRow(args)

	payment, err := scanPayment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	return payment, nil
}

type rowScanner interface {
	Scan(...interface{}) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		payment       models.Payment
		method        models.PaymentMethod
		status        models.PaymentStatus
		user          models.User
		transactionID sql.NullString
		paidAt        sql.NullTime
		metadata      sql.NullString
	)

	if err := row.Scan(
		&payment.ID,
		&payment.Amount,
		&payment.Currency,
		&payment.Description,
		&transactionID,
		&paidAt,
		&metadata,
		&payment.Created,
		&payment.Updated,
		&method.ID,
		&method.Name,
		&status.ID,
		&status.Name,
		&user.ID,
		&user.Company,
		&user.Email,
	); err != nil {
		return nil, err
	}

	payment.Method = &method
	payment.Status = &status
	payment.User = &user
	payment.TransactionID = transactionID.String
	if paidAt.Valid {
		t := paidAt.Time
		payment.PaidAt = &t
	}
	payment.Metadata = models.ParseMetadata(metadata.String)

	return &payment, nil
}

func (db *DB) GetPayments(opts *models.GetPaymentsOpts) ([]models.Payment, error) {
	query := getPayment + `
	WHERE 1 = 1`
	var args []interface{}

	if len(opts.UserIDs) > 0 {
		query += ` AND payment.user_id IN (?)`
		args = append(args, opts.UserIDs)
	}
	if len(opts.StatusIDs) > 0 {
		query += ` AND payment.status_id IN (?)`
		args = append(args, opts.StatusIDs)
	}
	if len(opts.MethodIDs) > 0 {
		query += ` AND payment.method_id IN (?)`
		args = append(args, opts.MethodIDs)
	}
	if opts.CreatedFrom != "" {
		query += ` AND payment.created >= ?`
		args = append(args, opts.CreatedFrom)
	}
	if opts.CreatedTo != "" {
		query += ` AND payment.created <= ?`
		args = append(args, opts.CreatedTo)
	}

	query += `
	ORDER BY payment.created DESC`

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

	var payments []models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}

		payments = append(payments, *payment)
	}

	return payments, rows.Err()
}

// UpdatePaymentReconcile applies a compare-and-set write. It returns false
// without error when the row no longer carries the expected status, meaning a
// concurrent writer got there first and the caller must re-read and re-merge.
func (db *DB) UpdatePaymentReconcile(opts *UpdatePaymentReconcileOpts) (bool, error) {
	tx, err := db.NewTx()
	if err != nil {
		return false, errors.Wrap(err, "failed to start transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}

		tx.Commit()
	}()

	matched, newErr := db.updatePaymentReconcileTx(tx, opts)
	if newErr != nil {
		err = newErr
		return false, err
	}

	return matched, nil
}

func (db *DB) updatePaymentReconcileTx(tx Tx, opts *UpdatePaymentReconcileOpts) (bool, error) {
	stmt, err := tx.PrepareNamed(updatePaymentReconcile)
	if err != nil {
		return false, err
	}

	var paidAt interface{}
	if opts.PaidAt != nil {
		paidAt = *opts.PaidAt
	}

	var transactionID interface{}
	if opts.TransactionID != "" {
		transactionID = opts.TransactionID
	}

	args := map[string]interface{}{
		"payment_id":         opts.ID,
		"expected_status_id": opts.ExpectedStatusID,
		"status_id":          opts.StatusID,
		"paid_at":            paidAt,
		"transaction_id":     transactionID,
		"metadata":           opts.Metadata,
	}

	result, err := stmt.Exec(args)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}
