package db

import (
	"database/sql"
	"encoding/json"

	"bitbucket.org/cargolink/backend/models"
)

type UserStorage interface {
	GetUserByID(userID int) (*models.User, error)
}

const (
	getUserByID = `
	SELECT
		user.id,
		user.company,
		user.email,
		user.phone,
		user.created,
		user.updated,
		user.active,
		COALESCE(CONCAT('[',GROUP_CONCAT(JSON_OBJECT('id', role.id, 'name', role.name)),']'))
	FROM
		user
	INNER JOIN
		pivot_role_user ON (pivot_role_user.user_id = user.id)
	INNER JOIN
		role ON (role.id = pivot_role_user.role_id AND role.active = 1)
	WHERE
		user.active = 1 AND
		user.id = :user_id
	GROUP BY
		user.id
	`
)

// GetUserByID is the read-only directory lookup. Account management lives in
// the auth service, not here.
func (db *DB) GetUserByID(userID int) (*models.User, error) {
	stmt, err := db.PrepareNamed(getUserByID)
	if err != nil {
		return nil, err
	}

	args := map[string]interface{}{
		"user_id": userID,
	}

	var (
		user     models.User
		rawRoles string
	)

	row := stmt.QueryRow(args)
	if err := row.Scan(
		&user.ID,
		&user.Company,
		&user.Email,
		&user.Phone,
		&user.Created,
		&user.Updated,
		&user.Active,
		&rawRoles,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	if err := json.Unmarshal([]byte(rawRoles), &user.Roles); err != nil {
		return nil, err
	}

	return &user, nil
}
