package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"carebridge/internal/authz"
	"carebridge/internal/models"
	"carebridge/internal/pdf"
	"carebridge/internal/repositories"
	"carebridge/internal/workflow"
)

// DocumentService renders the case's printable artifacts from persisted
// state. Files land under FilesRoot with uuid-suffixed names so regenerating
// never clobbers an older copy.
type DocumentService struct {
	LeadRepo  *repositories.LeadRepository
	FilesRoot string
	PDFGen    pdf.Generator
}

func NewDocumentService(leadRepo *repositories.LeadRepository, filesRoot string, pdfGen pdf.Generator) *DocumentService {
	return &DocumentService{LeadRepo: leadRepo, FilesRoot: filesRoot, PDFGen: pdfGen}
}

func (s *DocumentService) canAccess(lead *models.Lead, p authz.Principal) bool {
	return lead.AssignedBDID == p.UserID || authz.IsElevated(p.RoleID) || authz.IsReadOnly(p.RoleID)
}

// PreAuthForm renders the raised pre-auth request as a PDF and returns the
// absolute file path for streaming.
func (s *DocumentService) PreAuthForm(p authz.Principal, leadID int) (string, error) {
	if s.PDFGen == nil {
		return "", workflow.Validationf("pdf generator not configured")
	}
	lead, err := s.LeadRepo.GetByID(leadID)
	if err != nil {
		return "", err
	}
	if lead == nil {
		return "", workflow.NotFoundf("lead %d not found", leadID)
	}
	if !s.canAccess(lead, p) {
		return "", workflow.Forbiddenf("forbidden")
	}
	kyp, err := s.LeadRepo.KYPByLeadID(leadID)
	if err != nil {
		return "", err
	}
	pa, err := s.LeadRepo.PreAuthByLeadID(leadID)
	if err != nil {
		return "", err
	}
	if pa == nil || !pa.Raised() {
		return "", workflow.Validationf("pre-authorization has not been raised for this lead")
	}

	data := pdf.PreAuthFormData{
		LeadID:         lead.ID,
		PatientName:    lead.PatientName,
		InsurerName:    lead.InsurerName,
		PolicyNumber:   lead.PolicyNumber,
		HospitalName:   pa.RequestedHospitalName,
		RoomType:       pa.RequestedRoomType,
		RaisedAt:       *pa.RaisedAt,
		ApprovalStatus: string(pa.ApprovalStatus),
		ApprovedAmount: pa.ApprovedAmount,
		Filename:       fmt.Sprintf("preauth_form_lead_%d_%s.pdf", lead.ID, shortID()),
	}
	if kyp != nil {
		data.SumInsured = kyp.SumInsured
		if data.InsurerName == "" {
			data.InsurerName = kyp.InsurerName
		}
		if data.PolicyNumber == "" {
			data.PolicyNumber = kyp.PolicyNumber
		}
	}

	relPath, err := s.PDFGen.GeneratePreAuthForm(data)
	if err != nil {
		return "", err
	}
	return s.absPath(relPath), nil
}

// DischargeSummary renders the discharge summary for a discharged admission.
func (s *DocumentService) DischargeSummary(p authz.Principal, leadID int) (string, error) {
	if s.PDFGen == nil {
		return "", workflow.Validationf("pdf generator not configured")
	}
	lead, err := s.LeadRepo.GetByID(leadID)
	if err != nil {
		return "", err
	}
	if lead == nil {
		return "", workflow.NotFoundf("lead %d not found", leadID)
	}
	if !s.canAccess(lead, p) {
		return "", workflow.Forbiddenf("forbidden")
	}
	adm, err := s.LeadRepo.AdmissionByLeadID(leadID)
	if err != nil {
		return "", err
	}
	if adm == nil || adm.IPDStatus != models.IPDDischarged || adm.IPDDischargeDate == nil {
		return "", workflow.Validationf("patient has not been discharged yet")
	}
	pa, err := s.LeadRepo.PreAuthByLeadID(leadID)
	if err != nil {
		return "", err
	}

	data := pdf.DischargeSummaryData{
		LeadID:       lead.ID,
		PatientName:  lead.PatientName,
		HospitalName: adm.HospitalName,
		RoomType:     adm.RoomType,
		AdmittedAt:   adm.PlannedAdmissionDate,
		DischargedAt: *adm.IPDDischargeDate,
		Filename:     fmt.Sprintf("discharge_summary_lead_%d_%s.pdf", lead.ID, shortID()),
	}
	if pa != nil {
		data.ApprovedAmount = pa.ApprovedAmount
	}

	relPath, err := s.PDFGen.GenerateDischargeSummary(data)
	if err != nil {
		return "", err
	}
	return s.absPath(relPath), nil
}

func (s *DocumentService) absPath(relPath string) string {
	return filepath.Join(s.FilesRoot, filepath.Base(relPath))
}

func shortID() string {
	return strings.Split(uuid.NewString(), "-")[0]
}
