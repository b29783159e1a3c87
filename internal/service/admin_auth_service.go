package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/GTDGit/catalog_sync/internal/models"
	"github.com/GTDGit/catalog_sync/internal/utils"
)

// AdminRole is the JWT role required by the admin API.
const AdminRole = "admin"

const minPasswordLength = 8

var (
	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// AdminUserStore reads and creates operators.
type AdminUserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	Create(ctx context.Context, user *models.AdminUser) (bool, error)
	TouchLogin(ctx context.Context, id int, at time.Time) error
}

// AdminAuthService issues admin JWTs for operators.
type AdminAuthService struct {
	admins   AdminUserStore
	secret   string
	tokenTTL time.Duration
}

func NewAdminAuthService(admins AdminUserStore, secret string, tokenTTL time.Duration) *AdminAuthService {
	return &AdminAuthService{admins: admins, secret: secret, tokenTTL: tokenTTL}
}

// Login verifies the password and returns a token carrying AdminRole.
func (s *AdminAuthService) Login(ctx context.Context, email, password string) (string, error) {
	email = normalizeEmail(email)
	user, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		log.Error().Err(err).Str("email", email).Msg("Failed to load operator")
		return "", ErrInvalidCredentials
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Warn().Str("email", email).Msg("Password verification failed")
		return "", ErrInvalidCredentials
	}
	if !user.IsActive {
		log.Warn().Str("email", email).Msg("Inactive operator attempted login")
		return "", ErrAccountInactive
	}

	token, err := utils.GenerateJWT(s.secret, user.Email, []string{AdminRole}, s.tokenTTL)
	if err != nil {
		return "", err
	}
	if err := s.admins.TouchLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		log.Warn().Err(err).Int("admin_id", user.ID).Msg("Failed to record login time")
	}
	log.Info().Str("email", email).Msg("Operator logged in")
	return token, nil
}

// EnsureAdmin creates the bootstrap operator unless one with email exists.
// An existing operator keeps its password.
func (s *AdminAuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	created, err := s.admins.Create(ctx, &models.AdminUser{
		Email:        normalizeEmail(email),
		PasswordHash: string(hash),
		Name:         "bootstrap",
		IsActive:     true,
	})
	if err != nil {
		return err
	}
	if created {
		log.Info().Str("email", email).Msg("Bootstrap operator created")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
