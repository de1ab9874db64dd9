package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"carebridge/internal/models"
)

type HospitalRepository struct {
	db *sql.DB
}

func NewHospitalRepository(db *sql.DB) *HospitalRepository {
	return &HospitalRepository{db: db}
}

func (r *HospitalRepository) Create(h *models.Hospital) error {
	rooms, err := json.Marshal(h.Rooms)
	if err != nil {
		return fmt.Errorf("encode hospital rooms: %w", err)
	}
	const query = `
		INSERT INTO hospitals (name, city, rooms, active, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRow(query, h.Name, h.City, rooms, h.Active).Scan(&h.ID, &h.CreatedAt)
}

func (r *HospitalRepository) Update(h *models.Hospital) error {
	rooms, err := json.Marshal(h.Rooms)
	if err != nil {
		return fmt.Errorf("encode hospital rooms: %w", err)
	}
	const query = `UPDATE hospitals SET name=$1, city=$2, rooms=$3, active=$4 WHERE id=$5`
	_, err = r.db.Exec(query, h.Name, h.City, rooms, h.Active, h.ID)
	return err
}

func (r *HospitalRepository) GetByID(id int) (*models.Hospital, error) {
	query := `SELECT ` + hospitalColumns + ` FROM hospitals WHERE id=$1`
	return scanHospital(r.db.QueryRow(query, id))
}

func (r *HospitalRepository) GetByName(name string) (*models.Hospital, error) {
	query := `SELECT ` + hospitalColumns + ` FROM hospitals WHERE name=$1 AND active`
	return scanHospital(r.db.QueryRow(query, name))
}

func (r *HospitalRepository) List(activeOnly bool, limit, offset int) ([]*models.Hospital, error) {
	query := `SELECT ` + hospitalColumns + ` FROM hospitals`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name ASC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Hospital
	for rows.Next() {
		h := &models.Hospital{}
		var rooms []byte
		if err := rows.Scan(&h.ID, &h.Name, &h.City, &rooms, &h.Active, &h.CreatedAt); err != nil {
			return nil, err
		}
		if len(rooms) > 0 {
			if err := json.Unmarshal(rooms, &h.Rooms); err != nil {
				return nil, fmt.Errorf("decode hospital rooms: %w", err)
			}
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Deactivate is the only removal path; masters are never hard-deleted.
func (r *HospitalRepository) Deactivate(id int) error {
	const query = `UPDATE hospitals SET active=FALSE WHERE id=$1`
	_, err := r.db.Exec(query, id)
	return err
}
