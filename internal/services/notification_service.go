package services

import (
	"database/sql"
	"log"

	"carebridge/internal/models"
	"carebridge/internal/repositories"
	"carebridge/internal/workflow"
)

// NotificationService writes fan-out rows and then attempts delivery over the
// side channels. Row insertion failures are returned to the caller (who logs
// them); delivery failures are logged here and swallowed.
type NotificationService struct {
	repo     repositories.NotificationRepository
	userRepo repositories.UserRepository
	email    EmailService
	alerts   *TelegramAlerter
}

func NewNotificationService(repo repositories.NotificationRepository, userRepo repositories.UserRepository, email EmailService, alerts *TelegramAlerter) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, email: email, alerts: alerts}
}

func (s *NotificationService) NotifyRoles(roleIDs []int, leadID int, event, message string) error {
	users, err := s.userRepo.ListByRoles(roleIDs)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		return nil
	}
	rows := make([]*models.Notification, 0, len(users))
	for _, u := range users {
		rows = append(rows, &models.Notification{
			UserID:  u.ID,
			LeadID:  leadID,
			Event:   event,
			Message: message,
		})
	}
	if err := s.repo.CreateMany(rows); err != nil {
		return err
	}
	s.deliver(users, leadID, event, message)
	return nil
}

func (s *NotificationService) NotifyUser(userID, leadID int, event, message string) error {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}
	if err := s.repo.CreateMany([]*models.Notification{{
		UserID:  u.ID,
		LeadID:  leadID,
		Event:   event,
		Message: message,
	}}); err != nil {
		return err
	}
	s.deliver([]*models.User{u}, leadID, event, message)
	return nil
}

func (s *NotificationService) deliver(users []*models.User, leadID int, event, message string) {
	if s.email != nil {
		for _, u := range users {
			if u.Email == "" {
				continue
			}
			if err := s.email.SendCaseNotification(u.Email, u.Name, message); err != nil {
				log.Printf("[notify][email] delivery failed userID=%d event=%s: %v", u.ID, event, err)
			}
		}
	}
	if s.alerts != nil {
		if err := s.alerts.CaseAlert(leadID, event, message); err != nil {
			log.Printf("[notify][telegram] delivery failed leadID=%d event=%s: %v", leadID, event, err)
		}
	}
}

func (s *NotificationService) ListForUser(userID int, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	return s.repo.ListByUser(userID, unreadOnly, limit, offset)
}

func (s *NotificationService) MarkRead(id, userID int) error {
	if err := s.repo.MarkRead(id, userID); err != nil {
		if err == sql.ErrNoRows {
			return workflow.NotFoundf("notification %d not found", id)
		}
		return err
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID int) error {
	return s.repo.MarkAllRead(userID)
}
