package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/exampartner/backend/internal/config"
	"github.com/exampartner/backend/internal/dto"
	"github.com/exampartner/backend/internal/entitlement"
	"github.com/exampartner/backend/internal/models"
	"github.com/exampartner/backend/internal/token"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

type AuthService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewAuthService(db *gorm.DB, cfg *config.Config) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

func (s *AuthService) Register(ctx context.Context, req *dto.AuthRequest) (*dto.AuthResponse, error) {
	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))
	if identifier == "" || len(req.Password) < 4 {
		return nil, errors.New("invalid identifier/password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Identifier: identifier,
		Password:   string(hash),
		Plan:       "free",
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicateError(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.tokenResponse(&user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.AuthRequest) (*dto.AuthResponse, error) {
	identifier := strings.ToLower(strings.TrimSpace(req.Identifier))

	var user models.User
	if err := s.db.WithContext(ctx).Where("lower(identifier) = ?", identifier).First(&user).Error; err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.tokenResponse(&user)
}

func (s *AuthService) tokenResponse(user *models.User) (*dto.AuthResponse, error) {
	ttl := time.Duration(s.cfg.TokenTTLSeconds) * time.Second
	tok, err := token.Sign(user.Identifier, ttl, s.cfg.TokenSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &dto.AuthResponse{
		Token:      tok,
		Identifier: user.Identifier,
		IsPaid:     user.IsPaid,
	}, nil
}

func (s *AuthService) Me(ctx context.Context, identifier string) (*dto.MeResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("lower(identifier) = ?", strings.ToLower(identifier)).First(&user).Error; err != nil {
		return nil, ErrUserNotFound
	}

	var paidUntil *string
	if user.PaidUntil != nil {
		v := user.PaidUntil.UTC().Format(time.RFC3339)
		paidUntil = &v
	}

	return &dto.MeResponse{
		Identifier:   user.Identifier,
		IsPaid:       user.IsPaid,
		IsPaidActive: entitlement.ForUser(&user).Active(),
		PaidUntil:    paidUntil,
		Plan:         user.Plan,
		IsFounding:   user.IsFounding,
		Email:        user.Email,
	}, nil
}

func (s *AuthService) UpdateEmail(ctx context.Context, identifier, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return errors.New("invalid email")
	}
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("lower(identifier) = ?", strings.ToLower(identifier)).
		Update("email", email).Error
}

// CurrentUser loads the account for a verified token subject. A nil user
// with nil error means the account no longer exists.
func (s *AuthService) CurrentUser(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("lower(identifier) = ?", strings.ToLower(identifier)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FoundingStatus reports whether the founding cohort is still open to new
// members.
func (s *AuthService) FoundingStatus(ctx context.Context) (*dto.FoundingStatusResponse, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("is_founding = ?", true).Count(&count).Error; err != nil {
		return nil, err
	}
	return &dto.FoundingStatusResponse{
		Cap:   s.cfg.FoundingCap,
		Count: count,
		Open:  count < int64(s.cfg.FoundingCap),
	}, nil
}

// isDuplicateError matches unique-violation errors across drivers without
// depending on driver-specific error types.
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
