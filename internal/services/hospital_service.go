package services

import (
	"strings"

	"carebridge/internal/models"
	"carebridge/internal/repositories"
	"carebridge/internal/workflow"
)

// HospitalService manages the hospital master list used when Insurance
// suggests hospitals to a case.
type HospitalService struct {
	Repo *repositories.HospitalRepository
}

func NewHospitalService(repo *repositories.HospitalRepository) *HospitalService {
	return &HospitalService{Repo: repo}
}

func (s *HospitalService) validate(h *models.Hospital) error {
	if strings.TrimSpace(h.Name) == "" {
		return workflow.Validationf("hospital name is required")
	}
	for _, r := range h.Rooms {
		if strings.TrimSpace(r.Name) == "" {
			return workflow.Validationf("room name is required")
		}
		if strings.TrimSpace(r.Rent) == "" {
			return workflow.Validationf("room rent is required")
		}
	}
	return nil
}

func (s *HospitalService) Create(h *models.Hospital) error {
	if err := s.validate(h); err != nil {
		return err
	}
	existing, err := s.Repo.GetByName(h.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return workflow.Conflictf("a hospital named %q already exists", h.Name)
	}
	h.Active = true
	return s.Repo.Create(h)
}

func (s *HospitalService) Update(h *models.Hospital) error {
	if err := s.validate(h); err != nil {
		return err
	}
	current, err := s.Repo.GetByID(h.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return workflow.NotFoundf("hospital %d not found", h.ID)
	}
	return s.Repo.Update(h)
}

func (s *HospitalService) GetByID(id int) (*models.Hospital, error) {
	h, err := s.Repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, workflow.NotFoundf("hospital %d not found", id)
	}
	return h, nil
}

func (s *HospitalService) List(activeOnly bool, limit, offset int) ([]*models.Hospital, error) {
	return s.Repo.List(activeOnly, limit, offset)
}

func (s *HospitalService) Deactivate(id int) error {
	h, err := s.Repo.GetByID(id)
	if err != nil {
		return err
	}
	if h == nil {
		return workflow.NotFoundf("hospital %d not found", id)
	}
	return s.Repo.Deactivate(id)
}
