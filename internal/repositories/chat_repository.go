package repositories

import (
	"database/sql"

	"carebridge/internal/models"
)

type ChatRepository interface {
	ListMessages(leadID, limit, offset int) ([]*models.CaseMessage, error)
	CreateMessage(leadID, senderID int, system bool, text string) (*models.CaseMessage, error)
}

type chatRepository struct {
	DB *sql.DB
}

func NewChatRepository(db *sql.DB) ChatRepository {
	return &chatRepository{DB: db}
}

func (r *chatRepository) ListMessages(leadID, limit, offset int) ([]*models.CaseMessage, error) {
	const q = `
		SELECT id, lead_id, sender_id, is_system, text, created_at
		FROM case_messages
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.DB.Query(q, leadID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []*models.CaseMessage
	for rows.Next() {
		m := &models.CaseMessage{}
		if err := rows.Scan(&m.ID, &m.LeadID, &m.SenderID, &m.System, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *chatRepository) CreateMessage(leadID, senderID int, system bool, text string) (*models.CaseMessage, error) {
	const q = `
		INSERT INTO case_messages (lead_id, sender_id, is_system, text, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at
	`
	m := &models.CaseMessage{LeadID: leadID, SenderID: senderID, System: system, Text: text}
	if err := r.DB.QueryRow(q, leadID, senderID, system, text).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}
