package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/resourcehub/internal/common"
	"github.com/dmitrijs2005/resourcehub/internal/server/auth"
	"github.com/dmitrijs2005/resourcehub/internal/server/config"
	"github.com/dmitrijs2005/resourcehub/internal/server/models"
	"github.com/dmitrijs2005/resourcehub/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength applies to password changes.
const MinPasswordLength = 6

// RegisterInput is the data needed to open an account. Role is optional.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// UserService provides account operations:
// - Register / Login: verify credentials and mint access tokens
// - Profile / UpdateProfile / ChangePassword: self-service account edits
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Register creates a user and returns it with a fresh token. A taken email
// yields common.ErrorAlreadyExists.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.Email)
	repo := s.repomanager.Users(s.db)

	_, err = repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.Errorf(common.ErrorAlreadyExists, "User already exists")
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user, err := repo.Create(ctx, &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.Errorf(common.ErrorAlreadyExists, "User already exists")
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return s.authResult(user)
}

// Login checks the password against the stored hash and returns a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorValidation, "User not found")
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, common.Errorf(common.ErrorValidation, "Invalid credentials")
	}

	return s.authResult(user)
}

// Profile returns the user identified by id.
func (s *UserService) Profile(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, common.Errorf(common.ErrorNotFound, "User not found")
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Errorf(common.ErrorNotFound, "User not found")
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// UpdateProfile changes name and/or email. Empty values are left alone and
// an unchanged email skips the uniqueness check.
func (s *UserService) UpdateProfile(ctx context.Context, id, name, email string) (*models.User, error) {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	email = strings.TrimSpace(email)
	if email != "" && email != user.Email {
		other, err := repo.GetByEmail(ctx, email)
		switch {
		case err == nil && other.ID != user.ID:
			return nil, common.Errorf(common.ErrorAlreadyExists, "Email already in use")
		case err != nil && !errors.Is(err, common.ErrorNotFound):
			return nil, fmt.Errorf("error searching user: %w", err)
		}
		user.Email = email
	}
	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}

	updated, err := repo.Update(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			return nil, common.Errorf(common.ErrorAlreadyExists, "Email already in use")
		case errors.Is(err, common.ErrorNotFound):
			return nil, common.Errorf(common.ErrorNotFound, "User not found")
		}
		return nil, fmt.Errorf("error updating user: %w", err)
	}
	return updated, nil
}

// ChangePassword replaces the password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, id, current, next string) error {
	user, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
		return common.Errorf(common.ErrorValidation, "Current password is incorrect")
	}
	if len(next) < MinPasswordLength {
		return common.Errorf(common.ErrorValidation, "Password must be at least %d characters long", MinPasswordLength)
	}

	hash, err := hashPassword(next)
	if err != nil {
		return err
	}

	if err := s.repomanager.Users(s.db).UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

func (s *UserService) authResult(user *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(user.Identity(), s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &AuthResult{Token: token, User: user}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", common.Errorf(common.ErrorValidation, "Password is too long")
		}
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hash), nil
}
