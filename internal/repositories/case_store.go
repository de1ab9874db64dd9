package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carebridge/internal/models"
)

// CaseTx exposes every write the transition engine performs inside one
// database transaction: the row lock, the compare-and-swap stage write, the
// history append and the supporting-entity writes.
type CaseTx interface {
	LeadForUpdate(id int) (*models.Lead, error)
	SetLeadStage(id int, from, to models.CaseStage) error
	InsertHistory(h *models.CaseStageHistory) error

	KYPByLeadID(leadID int) (*models.KYPSubmission, error)
	InsertKYP(k *models.KYPSubmission) error
	SetKYPStatus(id int, status models.KYPStatus) error

	PreAuthByID(id int) (*models.PreAuthorization, error)
	PreAuthByLeadID(leadID int) (*models.PreAuthorization, error)
	InsertPreAuth(p *models.PreAuthorization) error
	MarkPreAuthRaised(id int, hospital, room string, byID int, at time.Time) error
	SetPreAuthDecision(id int, status models.ApprovalStatus, amount int64, byID int, at time.Time) error
	ClearPreAuthRequest(id int) error

	AdmissionByLeadID(leadID int) (*models.AdmissionRecord, error)
	InsertAdmission(a *models.AdmissionRecord) error
	SetAdmissionIPD(id int, status models.IPDStatus, dischargeDate *time.Time) error

	HospitalByName(name string) (*models.Hospital, error)
}

// CaseStore runs case mutations transactionally.
type CaseStore interface {
	Transact(ctx context.Context, fn func(tx CaseTx) error) error
}

// ErrStageConflict: the compare-and-swap stage write matched no row, meaning
// a concurrent request moved the case between our read and our write.
var ErrStageConflict = fmt.Errorf("case stage changed concurrently")

type caseStore struct {
	db *sql.DB
}

func NewCaseStore(db *sql.DB) CaseStore {
	return &caseStore{db: db}
}

func (s *caseStore) Transact(ctx context.Context, fn func(tx CaseTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&caseTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type caseTx struct {
	tx *sql.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

const leadColumns = `id, patient_name, patient_phone, city, insurer_name, policy_number, source, case_stage, assigned_bd_id, created_at, updated_at`

func scanLead(row rowScanner) (*models.Lead, error) {
	l := &models.Lead{}
	err := row.Scan(&l.ID, &l.PatientName, &l.PatientPhone, &l.City,
		&l.InsurerName, &l.PolicyNumber, &l.Source, &l.CaseStage,
		&l.AssignedBDID, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (t *caseTx) LeadForUpdate(id int) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id=$1 FOR UPDATE`
	return scanLead(t.tx.QueryRow(query, id))
}

func (t *caseTx) SetLeadStage(id int, from, to models.CaseStage) error {
	const query = `
		UPDATE leads SET case_stage=$1, updated_at=NOW()
		WHERE id=$2 AND case_stage=$3
	`
	res, err := t.tx.Exec(query, to, id, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStageConflict
	}
	return nil
}

func (t *caseTx) InsertHistory(h *models.CaseStageHistory) error {
	const query = `
		INSERT INTO case_stage_history (lead_id, from_stage, to_stage, changed_by_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	return t.tx.QueryRow(query, h.LeadID, h.FromStage, h.ToStage, h.ChangedByID, h.Note).
		Scan(&h.ID, &h.CreatedAt)
}

const kypColumns = `id, lead_id, status, patient_dob, id_proof_type, id_proof_number, insurer_name, policy_number, sum_insured, medical_history, submitted_by_id, created_at, updated_at`

func scanKYP(row rowScanner) (*models.KYPSubmission, error) {
	k := &models.KYPSubmission{}
	err := row.Scan(&k.ID, &k.LeadID, &k.Status, &k.PatientDOB,
		&k.IDProofType, &k.IDProofNumber, &k.InsurerName, &k.PolicyNumber,
		&k.SumInsured, &k.MedicalHistory, &k.SubmittedByID, &k.CreatedAt, &k.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (t *caseTx) KYPByLeadID(leadID int) (*models.KYPSubmission, error) {
	query := `SELECT ` + kypColumns + ` FROM kyp_submissions WHERE lead_id=$1`
	return scanKYP(t.tx.QueryRow(query, leadID))
}

func (t *caseTx) InsertKYP(k *models.KYPSubmission) error {
	const query = `
		INSERT INTO kyp_submissions
			(lead_id, status, patient_dob, id_proof_type, id_proof_number,
			 insurer_name, policy_number, sum_insured, medical_history,
			 submitted_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return t.tx.QueryRow(query, k.LeadID, k.Status, k.PatientDOB,
		k.IDProofType, k.IDProofNumber, k.InsurerName, k.PolicyNumber,
		k.SumInsured, k.MedicalHistory, k.SubmittedByID).
		Scan(&k.ID, &k.CreatedAt, &k.UpdatedAt)
}

func (t *caseTx) SetKYPStatus(id int, status models.KYPStatus) error {
	const query = `UPDATE kyp_submissions SET status=$1, updated_at=NOW() WHERE id=$2`
	_, err := t.tx.Exec(query, status, id)
	return err
}

const preAuthColumns = `id, kyp_submission_id, lead_id, suggested_hospitals, suggested_rooms, requested_hospital_name, requested_room_type, raised_by_id, raised_at, approval_status, approved_amount, decided_by_id, decided_at, created_at, updated_at`

func scanPreAuth(row rowScanner) (*models.PreAuthorization, error) {
	p := &models.PreAuthorization{}
	var hospitals pq.StringArray
	var rooms []byte
	err := row.Scan(&p.ID, &p.KYPSubmissionID, &p.LeadID, &hospitals, &rooms,
		&p.RequestedHospitalName, &p.RequestedRoomType, &p.RaisedByID, &p.RaisedAt,
		&p.ApprovalStatus, &p.ApprovedAmount, &p.DecidedByID, &p.DecidedAt,
		&p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.SuggestedHospitals = []string(hospitals)
	if len(rooms) > 0 {
		if err := json.Unmarshal(rooms, &p.SuggestedRooms); err != nil {
			return nil, fmt.Errorf("decode suggested_rooms: %w", err)
		}
	}
	return p, nil
}

func (t *caseTx) PreAuthByID(id int) (*models.PreAuthorization, error) {
	query := `SELECT ` + preAuthColumns + ` FROM pre_authorizations WHERE id=$1`
	return scanPreAuth(t.tx.QueryRow(query, id))
}

func (t *caseTx) PreAuthByLeadID(leadID int) (*models.PreAuthorization, error) {
	query := `SELECT ` + preAuthColumns + ` FROM pre_authorizations WHERE lead_id=$1`
	return scanPreAuth(t.tx.QueryRow(query, leadID))
}

func (t *caseTx) InsertPreAuth(p *models.PreAuthorization) error {
	rooms, err := json.Marshal(p.SuggestedRooms)
	if err != nil {
		return fmt.Errorf("encode suggested_rooms: %w", err)
	}
	const query = `
		INSERT INTO pre_authorizations
			(kyp_submission_id, lead_id, suggested_hospitals, suggested_rooms,
			 approval_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return t.tx.QueryRow(query, p.KYPSubmissionID, p.LeadID,
		pq.StringArray(p.SuggestedHospitals), rooms, p.ApprovalStatus).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (t *caseTx) MarkPreAuthRaised(id int, hospital, room string, byID int, at time.Time) error {
	const query = `
		UPDATE pre_authorizations
		SET requested_hospital_name=$1, requested_room_type=$2,
		    raised_by_id=$3, raised_at=$4, approval_status=$5, updated_at=NOW()
		WHERE id=$6
	`
	_, err := t.tx.Exec(query, hospital, room, byID, at, models.ApprovalPending, id)
	return err
}

func (t *caseTx) SetPreAuthDecision(id int, status models.ApprovalStatus, amount int64, byID int, at time.Time) error {
	const query = `
		UPDATE pre_authorizations
		SET approval_status=$1, approved_amount=$2, decided_by_id=$3, decided_at=$4, updated_at=NOW()
		WHERE id=$5
	`
	_, err := t.tx.Exec(query, status, amount, byID, at, id)
	return err
}

func (t *caseTx) ClearPreAuthRequest(id int) error {
	const query = `
		UPDATE pre_authorizations
		SET requested_hospital_name='', requested_room_type='',
		    raised_by_id=0, raised_at=NULL, updated_at=NOW()
		WHERE id=$1
	`
	_, err := t.tx.Exec(query, id)
	return err
}

const admissionColumns = `id, lead_id, hospital_name, room_type, planned_admission_date, ipd_status, ipd_discharge_date, created_at, updated_at`

func scanAdmission(row rowScanner) (*models.AdmissionRecord, error) {
	a := &models.AdmissionRecord{}
	err := row.Scan(&a.ID, &a.LeadID, &a.HospitalName, &a.RoomType,
		&a.PlannedAdmissionDate, &a.IPDStatus, &a.IPDDischargeDate,
		&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (t *caseTx) AdmissionByLeadID(leadID int) (*models.AdmissionRecord, error) {
	query := `SELECT ` + admissionColumns + ` FROM admission_records WHERE lead_id=$1`
	return scanAdmission(t.tx.QueryRow(query, leadID))
}

func (t *caseTx) InsertAdmission(a *models.AdmissionRecord) error {
	const query = `
		INSERT INTO admission_records
			(lead_id, hospital_name, room_type, planned_admission_date, ipd_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	return t.tx.QueryRow(query, a.LeadID, a.HospitalName, a.RoomType,
		a.PlannedAdmissionDate, a.IPDStatus).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (t *caseTx) SetAdmissionIPD(id int, status models.IPDStatus, dischargeDate *time.Time) error {
	const query = `
		UPDATE admission_records
		SET ipd_status=$1, ipd_discharge_date=COALESCE($2, ipd_discharge_date), updated_at=NOW()
		WHERE id=$3
	`
	_, err := t.tx.Exec(query, status, dischargeDate, id)
	return err
}

const hospitalColumns = `id, name, city, rooms, active, created_at`

func scanHospital(row rowScanner) (*models.Hospital, error) {
	h := &models.Hospital{}
	var rooms []byte
	err := row.Scan(&h.ID, &h.Name, &h.City, &rooms, &h.Active, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(rooms) > 0 {
		if err := json.Unmarshal(rooms, &h.Rooms); err != nil {
			return nil, fmt.Errorf("decode hospital rooms: %w", err)
		}
	}
	return h, nil
}

func (t *caseTx) HospitalByName(name string) (*models.Hospital, error) {
	query := `SELECT ` + hospitalColumns + ` FROM hospitals WHERE name=$1 AND active`
	return scanHospital(t.tx.QueryRow(query, name))
}
