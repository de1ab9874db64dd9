package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"carebridge/internal/models"
)

type NotificationRepository interface {
	CreateMany(ns []*models.Notification) error
	ListByUser(userID int, unreadOnly bool, limit, offset int) ([]*models.Notification, error)
	MarkRead(id, userID int) error
	MarkAllRead(userID int) error
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// CreateMany inserts the whole fan-out in one statement.
func (r *notificationRepository) CreateMany(ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO notifications (user_id, lead_id, event, message, read, created_at) VALUES `)
	args := make([]interface{}, 0, len(ns)*4)
	for i, n := range ns {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 4
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, FALSE, NOW())", base+1, base+2, base+3, base+4)
		args = append(args, n.UserID, n.LeadID, n.Event, n.Message)
	}
	_, err := r.db.Exec(sb.String(), args...)
	return err
}

func (r *notificationRepository) ListByUser(userID int, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	query := `
		SELECT id, user_id, lead_id, event, message, read, created_at
		FROM notifications
		WHERE user_id=$1
	`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.LeadID, &n.Event, &n.Message,
			&n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationRepository) MarkRead(id, userID int) error {
	const query = `UPDATE notifications SET read=TRUE WHERE id=$1 AND user_id=$2`
	res, err := r.db.Exec(query, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(userID int) error {
	const query = `UPDATE notifications SET read=TRUE WHERE user_id=$1 AND NOT read`
	_, err := r.db.Exec(query, userID)
	return err
}
