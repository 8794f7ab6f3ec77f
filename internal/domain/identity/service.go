package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medbook/medbook/internal/platform/apperr"
	"github.com/medbook/medbook/internal/platform/auth"
)

const minPasswordLen = 8

var hashCost = bcrypt.DefaultCost

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID, email string, roles []string) (string, time.Time, error)
}

type Service struct {
	users  UserRepository
	tokens TokenIssuer
	logger zerolog.Logger
}

func NewService(users UserRepository, tokens TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{users: users, tokens: tokens, logger: logger.With().Str("component", "identity").Logger()}
}

// Register creates a patient account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	u, err := s.createUser(ctx, in, auth.RolePatient)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// CreateUser lets an admin create an account with any role.
func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	role := in.Role
	if role == "" {
		role = auth.RolePatient
	}
	switch role {
	case auth.RolePatient, auth.RoleDoctor, auth.RoleAdmin:
	default:
		return nil, apperr.Validation("unknown role %q", role)
	}
	return s.createUser(ctx, in.RegisterInput, role)
}

func (s *Service) createUser(ctx context.Context, in RegisterInput, role string) (*User, error) {
	email := strings.TrimSpace(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("a valid email is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, apperr.Validation("password must be at least %d characters", minPasswordLen)
	}
	name := strings.TrimSpace(in.FullName)
	if name == "" {
		return nil, apperr.Validation("fullName is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), hashCost)
	if err != nil {
		return nil, err
	}
	u := &User{
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		FullName:     name,
		Phone:        in.Phone,
		Role:         role,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", role).Msg("user created")
	return u, nil
}

// Login checks credentials. Unknown emails and wrong passwords give the same
// error.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(in.Email))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperr.Unauthorized("invalid email or password")
	}
	return s.session(u)
}

func (s *Service) session(u *User) (*Session, error) {
	token, exp, err := s.tokens.Issue(u.ID.String(), u.Email, []string{u.Role})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// EnsureDevUser makes sure the identity used by unauthenticated development
// requests exists, so rows referencing it satisfy their foreign keys. Its
// password is random and never returned.
func (s *Service) EnsureDevUser(ctx context.Context) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), hashCost)
	if err != nil {
		return err
	}
	return s.users.EnsureExists(ctx, &User{
		ID:           uuid.MustParse(auth.DevUserID),
		Email:        "dev@medbook.local",
		PasswordHash: string(hash),
		FullName:     "Development Admin",
		Role:         auth.RoleAdmin,
	})
}
