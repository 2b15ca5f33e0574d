package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"bookreview/internal/apperrors"
	"bookreview/internal/logger"
	"bookreview/internal/models"
	"bookreview/internal/repositories"
	"bookreview/internal/validation"
)

const usernameTakenMessage = "A user with that username already exists."

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	validator  *validation.Validator
	events     EventPublisher
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which a session token is valid
	hashCost   int
}

// NewAuthService creates a new AuthService. events may be nil.
func NewAuthService(userRepo repositories.UserRepository, v *validation.Validator, jwtSecret string, tokenDuration time.Duration, events EventPublisher) *AuthService {
	if tokenDuration <= 0 {
		tokenDuration = 24 * time.Hour
	}
	return &AuthService{
		userRepo:   userRepo,
		validator:  v,
		events:     events,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: tokenDuration,
		hashCost:   bcrypt.DefaultCost,
	}
}

// TokenDuration is how long an issued token stays valid.
func (s *AuthService) TokenDuration() time.Duration {
	return s.tokenDurat
}

// RegisterUser validates the signup form, hashes the password and saves the new user.
func (s *AuthService) RegisterUser(ctx context.Context, input models.SignupInput) (*models.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if msg := validatePassword(input.Password2, input.Username); msg != "" {
		return nil, apperrors.FieldError("password2", msg)
	}

	taken, err := s.userRepo.UsernameTaken(ctx, input.Username, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.FieldError("username", usernameTakenMessage)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password1), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{Username: input.Username, Password: string(hashedPassword)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent signup for the same name.
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.FieldError("username", usernameTakenMessage)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	publish(s.events, EventUserRegistered, map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return user, nil
}

// LoginUser authenticates a user and returns it together with a session token.
// Unknown usernames and wrong passwords fail the same way.
func (s *AuthService) LoginUser(ctx context.Context, input models.LoginInput) (*models.User, string, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, "", err
	}

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", apperrors.InvalidCredentials()
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, "", apperrors.InvalidCredentials()
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// IssueToken signs a session token for user.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"pwd":      passwordFingerprint(user.Password),
		"exp":      now.Add(s.tokenDurat).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		logger.Log.WithError(err).Debug("Token validation error")
		return nil, apperrors.Unauthorized("invalid token")
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, apperrors.Unauthorized("invalid token")
}

// CurrentUser resolves a token to its user. Tokens issued before the user's
// last password change are rejected.
func (s *AuthService) CurrentUser(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok || rawID <= 0 {
		return nil, apperrors.Unauthorized("invalid token claims")
	}

	user, err := s.userRepo.GetByID(ctx, uint(rawID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("user no longer exists")
		}
		return nil, err
	}
	if fp, _ := claims["pwd"].(string); fp != passwordFingerprint(user.Password) {
		return nil, apperrors.Unauthorized("session expired")
	}
	return user, nil
}

// UpdateProfile changes username and password of user after verifying the
// current password. It returns the updated user and a fresh token.
func (s *AuthService) UpdateProfile(ctx context.Context, user *models.User, input models.ProfileInput) (*models.User, string, error) {
	input.Username = strings.TrimSpace(input.Username)
	if err := s.validator.Validate(input); err != nil {
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
		return nil, "", apperrors.FieldError("current_password", "Your old password was entered incorrectly. Please enter it again.")
	}
	if msg := validatePassword(input.NewPassword1, user.Username); msg != "" {
		return nil, "", apperrors.FieldError("new_password1", msg)
	}

	taken, err := s.userRepo.UsernameTaken(ctx, input.Username, user.ID)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", apperrors.FieldError("username", usernameTakenMessage)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword1), s.hashCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	updated := *user
	updated.Username = input.Username
	updated.Password = string(hashedPassword)
	if err := s.userRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, "", apperrors.FieldError("username", usernameTakenMessage)
		}
		return nil, "", fmt.Errorf("failed to update profile: %w", err)
	}

	token, err := s.IssueToken(&updated)
	if err != nil {
		return nil, "", err
	}
	return &updated, token, nil
}

// EnsureAdmin creates the bootstrap staff account, or promotes an existing
// user of that name. Empty credentials disable it.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	existing, err := s.userRepo.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.IsStaff {
			return nil
		}
		existing.IsStaff = true
		if err := s.userRepo.Update(ctx, existing); err != nil {
			return fmt.Errorf("failed to promote admin %s: %w", username, err)
		}
		logger.Log.WithField("username", username).Info("Promoted existing user to staff")
		return nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	admin := &models.User{Username: username, Password: string(hashedPassword), IsStaff: true}
	if err := s.userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin %s: %w", username, err)
	}
	logger.Log.WithField("username", username).Info("Created admin user")
	return nil
}

// ListUsers returns every account, for the admin dashboard.
func (s *AuthService) ListUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if actor == nil || !actor.IsStaff {
		return nil, apperrors.Forbiddenf("staff only")
	}
	return s.userRepo.List(ctx)
}

func passwordFingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}
