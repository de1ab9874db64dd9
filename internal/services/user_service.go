package services

import (
	"log"
	"strings"
	"time"

	"carebridge/internal/authz"
	"carebridge/internal/models"
	"carebridge/internal/repositories"
	"carebridge/internal/workflow"
)

type UserService interface {
	CreateUserWithPassword(user *models.User, plainPassword string) error
	GetUserByID(id int) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id int) error
	ListUsers(limit, offset int) ([]*models.User, error)
	UpdateRefresh(userID int, token string, expiresAt time.Time) error
	GetByRefreshToken(token string) (*models.User, error)
}

type userService struct {
	repo         repositories.UserRepository
	emailService EmailService
	authService  AuthService
}

func NewUserService(repo repositories.UserRepository, emailService EmailService, authService AuthService) UserService {
	return &userService{repo: repo, emailService: emailService, authService: authService}
}

func (s *userService) CreateUserWithPassword(user *models.User, plainPassword string) error {
	if strings.TrimSpace(plainPassword) == "" {
		return workflow.Validationf("password is required")
	}
	if strings.TrimSpace(user.Email) == "" {
		return workflow.Validationf("email is required")
	}
	if !validRole(user.RoleID) {
		return workflow.Validationf("unknown role id %d", user.RoleID)
	}

	existing, err := s.repo.GetByEmail(user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return workflow.Conflictf("a user with this email already exists")
	}

	hashed, err := s.authService.HashPassword(plainPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed

	if err := s.repo.Create(user); err != nil {
		return err
	}

	if s.emailService != nil {
		if err := s.emailService.SendWelcomeEmail(user.Email, user.Name); err != nil {
			// warn but do not fail creation
			log.Printf("CreateUserWithPassword: warning: failed to send welcome email to %s: %v", user.Email, err)
		}
	}
	return nil
}

func validRole(roleID int) bool {
	switch roleID {
	case authz.RoleBD, authz.RoleInsurance, authz.RoleInsuranceHead,
		authz.RoleOperations, authz.RoleAudit, authz.RoleAdmin:
		return true
	}
	return false
}

func (s *userService) GetUserByID(id int) (*models.User, error) {
	return s.repo.GetByID(id)
}

func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	return s.repo.GetByEmail(strings.TrimSpace(email))
}

func (s *userService) UpdateUser(user *models.User) error {
	if !validRole(user.RoleID) {
		return workflow.Validationf("unknown role id %d", user.RoleID)
	}
	return s.repo.Update(user)
}

func (s *userService) DeleteUser(id int) error {
	return s.repo.Delete(id)
}

func (s *userService) ListUsers(limit, offset int) ([]*models.User, error) {
	return s.repo.List(limit, offset)
}

func (s *userService) UpdateRefresh(userID int, token string, expiresAt time.Time) error {
	return s.repo.UpdateRefresh(userID, token, expiresAt)
}

func (s *userService) GetByRefreshToken(token string) (*models.User, error) {
	return s.repo.GetByRefreshToken(strings.TrimSpace(token))
}
