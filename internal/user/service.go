package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careslot/careslot/internal/auth"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidPassword = errors.New("invalid password")
)

// CredentialVerifier hashes and compares passwords. The concrete
// implementation lives in the auth package.
type CredentialVerifier interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type Service struct {
	repo     Repository
	verifier CredentialVerifier
	issuer   *auth.Issuer
	log      zerolog.Logger
}

func NewService(repo Repository, verifier CredentialVerifier, issuer *auth.Issuer, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		verifier: verifier,
		issuer:   issuer,
		log:      log,
	}
}

type RegisterInput struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber *string
	Role        Role
	Password    string

	// doctor fields
	Specialization *string
	Bio            *string

	// patient fields
	Gender      *string
	DateOfBirth *string
}

type UpdateInput struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string

	Specialization *string
	Bio            *string
	Gender         *string
	DateOfBirth    *string
}

// AuthResult is what register and login hand back to the transport layer.
type AuthResult struct {
	User         *User
	Token        string
	RefreshToken string
}

// Register creates a user and its role profile. Every field, including the
// role-specific ones, is validated before anything is written, and the user
// plus profile insert runs in one transaction, so a failed registration
// leaves no partial rows behind.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if in.FirstName == "" {
		return nil, fmt.Errorf("%w: first_name is required", ErrInvalidInput)
	}
	if in.LastName == "" {
		return nil, fmt.Errorf("%w: last_name is required", ErrInvalidInput)
	}
	if in.Email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if in.Role == "" {
		return nil, fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	if !ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: role must be one of patient, doctor, admin", ErrInvalidInput)
	}

	ops := opsByRole[in.Role]
	if err := ops.validateRegister(in); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.verifier.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		ID:           uuid.New(),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		Role:         in.Role,
		PasswordHash: hash,
	}

	if err := ops.register(ctx, s.repo, u, in); err != nil {
		return nil, err
	}

	result, err := s.issueTokens(u)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("user registered")
	return result, nil
}

// Login checks the credentials and issues a fresh token pair.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidEmail
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !s.verifier.Compare(u.PasswordHash, password) {
		return nil, ErrInvalidPassword
	}

	return s.issueTokens(u)
}

// Refresh mints a new access token from a refresh token's claims. The user
// record is not re-read, so the claims stay as fresh as the refresh token's
// issuance.
func (s *Service) Refresh(refreshToken string) (string, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return "", err
	}
	return s.issuer.SignAccess(claims.UserID, claims.Email, claims.Role)
}

func (s *Service) issueTokens(u *User) (*AuthResult, error) {
	token, err := s.issuer.SignAccess(u.ID.String(), u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.SignRefresh(u.ID.String(), u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, Token: token, RefreshToken: refresh}, nil
}

// Get returns a user with its role profile fields merged in.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.repo.GetDetail(ctx, id)
}

// List returns users, optionally narrowed to one role.
func (s *Service) List(ctx context.Context, role Role) ([]Detail, error) {
	if role != "" && role != RoleDoctor && role != RolePatient {
		return nil, fmt.Errorf("%w: role filter must be doctor or patient", ErrInvalidInput)
	}
	return s.repo.List(ctx, role)
}

// Update applies a partial update to the user row and, through the role's
// capability, to its profile. Omitted fields keep their values.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Detail, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.PhoneNumber != nil {
		u.PhoneNumber = in.PhoneNumber
	}

	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}

	if err := opsByRole[u.Role].applyUpdate(ctx, s.repo, u, in); err != nil {
		return nil, err
	}

	return s.repo.GetDetail(ctx, id)
}

// Delete removes the user and its role profile.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteUser(ctx, u.ID); err != nil {
		return err
	}

	s.log.Info().Str("user_id", id.String()).Str("role", string(u.Role)).Msg("user deleted")
	return nil
}
