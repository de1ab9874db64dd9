package services

import (
	"strings"

	"carebridge/internal/authz"
	"carebridge/internal/models"
	"carebridge/internal/repositories"
	"carebridge/internal/workflow"
)

// ChatService handles the per-lead case chat. Membership: the assigned BD,
// elevated roles and audit (read-only) can see a case's chat.
type ChatService struct {
	repo     repositories.ChatRepository
	leadRepo *repositories.LeadRepository
}

func NewChatService(repo repositories.ChatRepository, leadRepo *repositories.LeadRepository) *ChatService {
	return &ChatService{repo: repo, leadRepo: leadRepo}
}

func (s *ChatService) canView(lead *models.Lead, p authz.Principal) bool {
	return lead.AssignedBDID == p.UserID || authz.IsElevated(p.RoleID) || authz.IsReadOnly(p.RoleID)
}

func (s *ChatService) GetMessages(p authz.Principal, leadID, limit, offset int) ([]*models.CaseMessage, error) {
	lead, err := s.leadRepo.GetByID(leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, workflow.NotFoundf("lead %d not found", leadID)
	}
	if !s.canView(lead, p) {
		return nil, workflow.Forbiddenf("not a member of this case chat")
	}
	return s.repo.ListMessages(leadID, limit, offset)
}

func (s *ChatService) SendMessage(p authz.Principal, leadID int, text string) (*models.CaseMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, workflow.Validationf("message text is required")
	}
	if !authz.Allowed(p.RoleID, authz.CapChatPost) {
		return nil, workflow.Forbiddenf("role cannot post to case chats")
	}
	lead, err := s.leadRepo.GetByID(leadID)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, workflow.NotFoundf("lead %d not found", leadID)
	}
	if !s.canView(lead, p) {
		return nil, workflow.Forbiddenf("not a member of this case chat")
	}
	return s.repo.CreateMessage(leadID, p.UserID, false, text)
}

// PostSystemMessage implements the engine's ChatPoster; it skips the
// membership check because the author is the system itself.
func (s *ChatService) PostSystemMessage(leadID int, text string) error {
	_, err := s.repo.CreateMessage(leadID, 0, true, text)
	return err
}
