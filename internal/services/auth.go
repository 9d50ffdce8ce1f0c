package services

import (
	"context"
	"fmt"
	"strings"

	"fleet-manager/internal/errs"
	"fleet-manager/internal/models"
	"fleet-manager/internal/repository"
	"fleet-manager/pkg/jwt"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo repository.UserRepository
	jwtUtil  *jwt.JWTUtil
}

func NewAuthService(userRepo repository.UserRepository, jwtUtil *jwt.JWTUtil) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		jwtUtil:  jwtUtil,
	}
}

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims the username so length rules apply to what is stored.
func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type LoginResponse struct {
	User      *models.AuthUser `json:"user"`
	Token     string           `json:"token"`
	ExpiresIn int64            `json:"expiresIn"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=admin manager operator viewer"`
}

func (r *RegisterRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type RegisterResponse struct {
	ID string `json:"id"`
}

// Login verifies the password against the stored hash and issues a bearer
// token carrying the user id and role.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logrus.WithField("username", user.Username).Info("login rejected")
		return nil, errs.Unauthorized("invalid credentials")
	}

	token, err := s.jwtUtil.GenerateToken(user.ID.Hex(), user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &LoginResponse{
		User: &models.AuthUser{
			ID:       user.ID.Hex(),
			Username: user.Username,
			Role:     user.Role,
		},
		Token:     token,
		ExpiresIn: int64(s.jwtUtil.Expiry().Seconds()),
	}, nil
}

// Register stores a new user with a bcrypt hash of the password. A taken
// username is a Conflict, whether seen by the lookup or by the unique index.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	username := strings.TrimSpace(req.Username)

	_, err := s.userRepo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, errs.Conflict("user already exists")
	case !errs.IsNotFound(err):
		return nil, err
	}

	hashed, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = models.DefaultRole
	}

	user, err := s.userRepo.Create(ctx, &models.User{
		Username: username,
		Password: hashed,
		Role:     role,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID.Hex(), "role": role}).Info("user registered")
	return &RegisterResponse{ID: user.ID.Hex()}, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}
