package repositories

import (
	"database/sql"

	"carebridge/internal/models"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) ListByLead(leadID int) ([]*models.CaseStageHistory, error) {
	const query = `
		SELECT id, lead_id, from_stage, to_stage, changed_by_id, note, created_at
		FROM case_stage_history
		WHERE lead_id=$1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(query, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CaseStageHistory
	for rows.Next() {
		h := &models.CaseStageHistory{}
		if err := rows.Scan(&h.ID, &h.LeadID, &h.FromStage, &h.ToStage,
			&h.ChangedByID, &h.Note, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
