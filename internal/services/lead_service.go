package services

import (
	"strings"

	"carebridge/internal/authz"
	"carebridge/internal/models"
	"carebridge/internal/repositories"
	"carebridge/internal/workflow"
)

type LeadService struct {
	Repo        *repositories.LeadRepository
	HistoryRepo *repositories.HistoryRepository
}

func NewLeadService(repo *repositories.LeadRepository, historyRepo *repositories.HistoryRepository) *LeadService {
	return &LeadService{Repo: repo, HistoryRepo: historyRepo}
}

// Create always starts a lead at NEW_LEAD; the caller can never pick a stage.
func (s *LeadService) Create(lead *models.Lead, p authz.Principal) error {
	if strings.TrimSpace(lead.PatientName) == "" {
		return workflow.Validationf("patient_name is required")
	}
	lead.CaseStage = models.StageNewLead
	if lead.AssignedBDID == 0 && p.RoleID == authz.RoleBD {
		lead.AssignedBDID = p.UserID
	}
	return s.Repo.Create(lead)
}

// Update edits contact/insurer fields only; the repository's UPDATE never
// touches case_stage.
func (s *LeadService) Update(lead *models.Lead) error {
	return s.Repo.Update(lead)
}

func (s *LeadService) GetByID(id int) (*models.Lead, error) {
	return s.Repo.GetByID(id)
}

func (s *LeadService) ListPaginated(limit, offset int) ([]*models.Lead, error) {
	return s.Repo.ListPaginated(limit, offset)
}

func (s *LeadService) ListMy(ownerID, limit, offset int) ([]*models.Lead, error) {
	return s.Repo.ListByOwner(ownerID, limit, offset)
}

func (s *LeadService) Filter(stage models.CaseStage, ownerID int, sortBy, order string, limit, offset int) ([]*models.Lead, error) {
	if stage != "" && !stage.Valid() {
		return nil, workflow.Validationf("unknown case stage %q", stage)
	}
	return s.Repo.FilterLeads(stage, ownerID, sortBy, order, limit, offset)
}

func (s *LeadService) AssignBD(id, assigneeID int) error {
	lead, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}
	if lead == nil {
		return workflow.NotFoundf("lead %d not found", id)
	}
	return s.Repo.UpdateOwner(id, assigneeID)
}

func (s *LeadService) History(id int) ([]*models.CaseStageHistory, error) {
	lead, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, workflow.NotFoundf("lead %d not found", id)
	}
	return s.HistoryRepo.ListByLead(id)
}

// Detail is the read-side aggregate for the case page.
type LeadDetail struct {
	Lead      *models.Lead             `json:"lead"`
	KYP       *models.KYPSubmission    `json:"kyp,omitempty"`
	PreAuth   *models.PreAuthorization `json:"pre_auth,omitempty"`
	Admission *models.AdmissionRecord  `json:"admission,omitempty"`
}

func (s *LeadService) Detail(id int) (*LeadDetail, error) {
	lead, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, workflow.NotFoundf("lead %d not found", id)
	}
	kyp, err := s.Repo.KYPByLeadID(id)
	if err != nil {
		return nil, err
	}
	pa, err := s.Repo.PreAuthByLeadID(id)
	if err != nil {
		return nil, err
	}
	adm, err := s.Repo.AdmissionByLeadID(id)
	if err != nil {
		return nil, err
	}
	return &LeadDetail{Lead: lead, KYP: kyp, PreAuth: pa, Admission: adm}, nil
}
