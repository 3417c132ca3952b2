package database

import (
	"database/sql"

	"RedditSchedulerAPI/models"
)

const userColumns = `id, email, password, name, reddit_username, variant_name,
	subscription_renews_at, customer_id, subscription_id, post_available, created_at`

func (d *Database) CreateUser(user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := d.DB.Exec(query, user.ID, user.Email, user.Password, user.Name,
		user.RedditUsername, user.VariantName, user.SubscriptionRenewsAt,
		user.CustomerID, user.SubscriptionID, user.PostAvailable, user.CreatedAt)
	return err
}

func (d *Database) GetUserByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(d.DB.QueryRow(query, email))
}

func (d *Database) GetUserByID(id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(d.DB.QueryRow(query, id))
}

func (d *Database) GetUserByName(name string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE name = $1`
	return scanUser(d.DB.QueryRow(query, name))
}

// UpdateSubscription overwrites the billing fields set by the webhook.
func (d *Database) UpdateSubscription(user *models.User) error {
	query := `UPDATE users SET reddit_username = $1, variant_name = $2,
			  subscription_renews_at = $3, customer_id = $4, subscription_id = $5,
			  post_available = $6
			  WHERE id = $7`
	_, err := d.DB.Exec(query, user.RedditUsername, user.VariantName,
		user.SubscriptionRenewsAt, user.CustomerID, user.SubscriptionID,
		user.PostAvailable, user.ID)
	return err
}

// ConsumePostCredit decrements post_available when a credit remains.
// Returns false when the quota is exhausted.
func (d *Database) ConsumePostCredit(userID string) (bool, error) {
	query := `UPDATE users SET post_available = post_available - 1
			  WHERE id = $1 AND post_available > 0`

	res, err := d.DB.Exec(query, userID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var renewsAt sql.NullTime

	err := row.Scan(&user.ID, &user.Email, &user.Password, &user.Name,
		&user.RedditUsername, &user.VariantName, &renewsAt,
		&user.CustomerID, &user.SubscriptionID, &user.PostAvailable, &user.CreatedAt)
	if err != nil {
		return nil, err
	}

	if renewsAt.Valid {
		t := renewsAt.Time
		user.SubscriptionRenewsAt = &t
	}
	return user, nil
}
