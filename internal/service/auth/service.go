package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/telehealth-api/internal/model"
	"github.com/jwalitptl/telehealth-api/internal/repository"
	"github.com/jwalitptl/telehealth-api/pkg/auth"
	apperrors "github.com/jwalitptl/telehealth-api/pkg/errors"
	"github.com/jwalitptl/telehealth-api/pkg/security"
)

type Service struct {
	userRepo repository.UserRepository
	hasher   security.PasswordHasher
	jwtSvc   auth.JWTService
}

func NewService(userRepo repository.UserRepository, hasher security.PasswordHasher, jwtSvc auth.JWTService) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		jwtSvc:   jwtSvc,
	}
}

// RegisterPatient creates the user account and its patient profile in one
// transaction. Self-service signup always yields the PATIENT role.
func (s *Service) RegisterPatient(ctx context.Context, req *model.RegisterPatientRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest("invalid password", err)
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.UserRolePatient,
		Status:       model.UserStatusActive,
	}
	patient := &model.Patient{
		Name:          req.Name,
		Email:         req.Email,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
	}

	if err := s.userRepo.CreateWithPatient(ctx, user, patient); err != nil {
		return nil, apperrors.Conflict("email already registered", err)
	}
	return user, nil
}

// CreateDoctor creates the user account and its doctor profile. Admin only;
// the handler enforces the role.
func (s *Service) CreateDoctor(ctx context.Context, req *model.CreateDoctorRequest) (*model.Doctor, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.BadRequest("invalid password", err)
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.UserRoleDoctor,
		Status:       model.UserStatusActive,
	}
	doctor := &model.Doctor{
		Name:               req.Name,
		Email:              req.Email,
		ContactNumber:      req.ContactNumber,
		Address:            req.Address,
		RegistrationNumber: req.RegistrationNumber,
		Experience:         req.Experience,
		AppointmentFee:     req.AppointmentFee,
		Qualification:      req.Qualification,
		Specialty:          req.Specialty,
	}

	if err := s.userRepo.CreateWithDoctor(ctx, user, doctor); err != nil {
		return nil, apperrors.Conflict("email already registered", err)
	}
	return doctor, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized("invalid credentials", nil)
		}
		return nil, apperrors.Internal(err)
	}

	if user.Status != model.UserStatusActive {
		return nil, apperrors.Forbidden("account is not active", nil)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials", nil)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update login timestamp: %w", err))
	}

	return s.generateTokens(user)
}

// RefreshToken exchanges a valid refresh token for a fresh token pair. The
// user is re-read so a blocked account cannot keep refreshing.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}
	if user.Status != model.UserStatusActive {
		return nil, apperrors.Forbidden("account is not active", nil)
	}

	return s.generateTokens(user)
}

func (s *Service) generateTokens(user *model.User) (*model.TokenResponse, error) {
	accessToken, expiresAt, err := s.jwtSvc.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate access token: %w", err))
	}

	refreshToken, err := s.jwtSvc.GenerateRefreshToken(user)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate refresh token: %w", err))
	}

	return &model.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}
