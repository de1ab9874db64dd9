package repositories

import (
	"database/sql"
	"time"

	"github.com/lib/pq"

	"carebridge/internal/models"
)

type UserRepository interface {
	Create(user *models.User) error
	GetByID(id int) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id int) error
	List(limit, offset int) ([]*models.User, error)
	ListByRoles(roleIDs []int) ([]*models.User, error)
	UpdateRefresh(userID int, token string, expiresAt time.Time) error
	GetByRefreshToken(token string) (*models.User, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, name, email, phone, password_hash, role_id, refresh_token, refresh_expires_at, refresh_revoked`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
		&u.RoleID, &u.RefreshToken, &u.RefreshExpiresAt, &u.RefreshRevoked)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(user *models.User) error {
	const query = `
		INSERT INTO users (name, email, phone, password_hash, role_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRow(query, user.Name, user.Email, user.Phone,
		user.PasswordHash, user.RoleID).Scan(&user.ID)
}

func (r *userRepository) GetByID(id int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.QueryRow(query, id))
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.db.QueryRow(query, email))
}

func (r *userRepository) Update(user *models.User) error {
	const query = `
		UPDATE users SET name=$1, email=$2, phone=$3, role_id=$4
		WHERE id=$5
	`
	_, err := r.db.Exec(query, user.Name, user.Email, user.Phone, user.RoleID, user.ID)
	return err
}

func (r *userRepository) Delete(id int) error {
	const query = `DELETE FROM users WHERE id=$1`
	_, err := r.db.Exec(query, id)
	return err
}

func (r *userRepository) List(limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id LIMIT $1 OFFSET $2`
	return r.listUsers(query, limit, offset)
}

// ListByRoles backs the role-group notification fan-out.
func (r *userRepository) ListByRoles(roleIDs []int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role_id = ANY($1) ORDER BY id`
	return r.listUsers(query, pq.Array(roleIDs))
}

func (r *userRepository) listUsers(query string, args ...interface{}) ([]*models.User, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
			&u.RoleID, &u.RefreshToken, &u.RefreshExpiresAt, &u.RefreshRevoked); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *userRepository) UpdateRefresh(userID int, token string, expiresAt time.Time) error {
	const query = `
		UPDATE users
		SET refresh_token=$1, refresh_expires_at=$2, refresh_revoked=FALSE
		WHERE id=$3
	`
	_, err := r.db.Exec(query, token, expiresAt, userID)
	return err
}

func (r *userRepository) GetByRefreshToken(token string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE refresh_token=$1`
	return scanUser(r.db.QueryRow(query, token))
}
