package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/app/models/dto"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/auth"
	"github.com/yigit/credittransfer/internal/pkg/validation"
)

// AuthService handles authentication operations
type AuthService struct {
	users      UserStore
	jwtService *auth.JWTService
	hashCost   int
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(users UserStore, jwtService *auth.JWTService, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		jwtService: jwtService,
		hashCost:   auth.BcryptCost,
		logger:     logger,
	}
}

// WithHashCost overrides the bcrypt cost used for new passwords
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.hashCost = cost
	return s
}

// validateEmail validates an email address
func (s *AuthService) validateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.NewValidationError("email cannot be empty")
	}
	if !validation.NewStringValidation(email).WithPattern(validation.CompiledPatterns.Email).Validate() {
		return apperrors.NewValidationError("invalid email format")
	}
	return nil
}

// validatePassword checks if password meets requirements
func (s *AuthService) validatePassword(password string) error {
	if !validation.NewStringValidation(password).WithMinLength(validation.PasswordMinLength).Validate() {
		return apperrors.NewValidationError(fmt.Sprintf("password must be at least %d characters long", validation.PasswordMinLength))
	}

	hasLetter, hasDigit := false, false
	for _, char := range password {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsDigit(char):
			hasDigit = true
		}
	}
	if !hasLetter {
		return apperrors.NewValidationError("password must contain at least one letter")
	}
	if !hasDigit {
		return apperrors.NewValidationError("password must contain at least one digit")
	}

	return nil
}

// Register creates a student account and signs it in
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validateEmail(email); err != nil {
		return nil, err
	}
	if err := s.validatePassword(req.Password); err != nil {
		return nil, err
	}

	var studentNumber *string
	if sn := strings.TrimSpace(req.StudentNumber); sn != "" {
		if !validation.NewStringValidation(sn).WithPattern(validation.CompiledPatterns.StudentNumber).Validate() {
			return nil, apperrors.NewValidationError("invalid student number format")
		}
		studentNumber = &sn
	}

	if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailAlreadyExists
	} else if !errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, fmt.Errorf("error checking if email exists: %w", err)
	}

	hashed, err := auth.HashPasswordWithCost(req.Password, s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Email:         email,
		Password:      hashed,
		FirstName:     strings.TrimSpace(req.FirstName),
		LastName:      strings.TrimSpace(req.LastName),
		RoleType:      models.RoleStudent,
		StudentNumber: studentNumber,
		IsActive:      true,
	}

	user.ID, err = s.users.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Msg("Student registered")

	return s.authResponse(user)
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validateEmail(email); err != nil {
		return nil, err
	}
	if req.Password == "" {
		return nil, apperrors.NewValidationError("password cannot be empty")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !user.IsActive || !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to update last login")
	}

	return s.authResponse(user)
}

// GetProfile retrieves the authenticated user
func (s *AuthService) GetProfile(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	if userID <= 0 {
		return nil, apperrors.NewValidationError("user ID must be positive")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := dto.FromUser(user)
	return &profile, nil
}

func (s *AuthService) authResponse(user *models.User) (*dto.AuthResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(expiresIn),
		},
		User: dto.FromUser(user),
	}, nil
}
