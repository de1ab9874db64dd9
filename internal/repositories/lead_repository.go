package repositories

import (
	"database/sql"
	"fmt"
	"log"

	"carebridge/internal/models"
)

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	if db == nil {
		log.Fatalf("received nil database connection")
	}
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(lead *models.Lead) error {
	const query = `
		INSERT INTO leads
			(patient_name, patient_phone, city, insurer_name, policy_number,
			 source, case_stage, assigned_bd_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(query, lead.PatientName, lead.PatientPhone, lead.City,
		lead.InsurerName, lead.PolicyNumber, lead.Source, lead.CaseStage,
		lead.AssignedBDID).
		Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
}

// Update never touches case_stage; the stage only moves through the case
// store's compare-and-swap write.
func (r *LeadRepository) Update(lead *models.Lead) error {
	const query = `
		UPDATE leads
		SET patient_name=$1, patient_phone=$2, city=$3, insurer_name=$4,
		    policy_number=$5, source=$6, updated_at=NOW()
		WHERE id=$7
	`
	_, err := r.db.Exec(query, lead.PatientName, lead.PatientPhone, lead.City,
		lead.InsurerName, lead.PolicyNumber, lead.Source, lead.ID)
	return err
}

func (r *LeadRepository) GetByID(id int) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id=$1`
	return scanLead(r.db.QueryRow(query, id))
}

func (r *LeadRepository) UpdateOwner(id, assigneeID int) error {
	const query = `UPDATE leads SET assigned_bd_id=$1, updated_at=NOW() WHERE id=$2`
	_, err := r.db.Exec(query, assigneeID, id)
	return err
}

func (r *LeadRepository) CountLeads() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM leads`).Scan(&count)
	return count, err
}

func (r *LeadRepository) ListPaginated(limit, offset int) ([]*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	return r.listLeads(query, limit, offset)
}

func (r *LeadRepository) ListByOwner(ownerID, limit, offset int) ([]*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE assigned_bd_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.listLeads(query, ownerID, limit, offset)
}

func (r *LeadRepository) FilterLeads(stage models.CaseStage, ownerID int, sortBy, order string, limit, offset int) ([]*models.Lead, error) {
	if sortBy == "" {
		sortBy = "created_at"
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}
	allowed := map[string]bool{"created_at": true, "assigned_bd_id": true, "case_stage": true}
	if !allowed[sortBy] {
		sortBy = "created_at"
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []interface{}{}
	i := 1

	if stage != "" {
		query += fmt.Sprintf(" AND case_stage = $%d", i)
		args = append(args, stage)
		i++
	}
	if ownerID > 0 {
		query += fmt.Sprintf(" AND assigned_bd_id = $%d", i)
		args = append(args, ownerID)
		i++
	}

	query += fmt.Sprintf(" ORDER BY %s %s LIMIT $%d OFFSET $%d", sortBy, order, i, i+1)
	args = append(args, limit, offset)

	return r.listLeads(query, args...)
}

func (r *LeadRepository) listLeads(query string, args ...interface{}) ([]*models.Lead, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Lead
	for rows.Next() {
		l := &models.Lead{}
		if err := rows.Scan(&l.ID, &l.PatientName, &l.PatientPhone, &l.City,
			&l.InsurerName, &l.PolicyNumber, &l.Source, &l.CaseStage,
			&l.AssignedBDID, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// Read-side getters for the supporting entities, used by detail endpoints and
// the document generator. Absent rows come back as nil.

func (r *LeadRepository) KYPByLeadID(leadID int) (*models.KYPSubmission, error) {
	query := `SELECT ` + kypColumns + ` FROM kyp_submissions WHERE lead_id=$1`
	return scanKYP(r.db.QueryRow(query, leadID))
}

func (r *LeadRepository) PreAuthByLeadID(leadID int) (*models.PreAuthorization, error) {
	query := `SELECT ` + preAuthColumns + ` FROM pre_authorizations WHERE lead_id=$1`
	return scanPreAuth(r.db.QueryRow(query, leadID))
}

func (r *LeadRepository) AdmissionByLeadID(leadID int) (*models.AdmissionRecord, error) {
	query := `SELECT ` + admissionColumns + ` FROM admission_records WHERE lead_id=$1`
	return scanAdmission(r.db.QueryRow(query, leadID))
}
