package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken indicates the email is already registered
var ErrEmailTaken = errors.New("email address is already in use")

// ErrInvalidCredentials indicates the email/password pair does not match
var ErrInvalidCredentials = errors.New("invalid email or password")

// Registration holds the fields required to create an account
type Registration struct {
	FirstName    string
	LastName     string
	Email        string
	Password     string
	DOB          string
	MobileNumber string
}

// Service handles account registration and login
type Service struct {
	store Store
}

// NewService creates a new Service
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register creates a new account with a bcrypt password hash. The email must
// be unique.
func (s *Service) Register(ctx context.Context, reg Registration) (*Profile, error) {
	_, err := s.store.FindByEmail(ctx, reg.Email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &User{
		ID:           uuid.NewString(),
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		Email:        reg.Email,
		PasswordHash: string(hash),
		DOB:          reg.DOB,
		MobileNumber: reg.MobileNumber,
		CreatedAt:    time.Now(),
	}
	if err := s.store.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &Profile{ID: u.ID, FirstName: u.FirstName, Email: u.Email}, nil
}

// Login verifies credentials via salted hash comparison and returns the
// profile on success. Unknown emails and wrong passwords are reported
// identically.
func (s *Service) Login(ctx context.Context, email, password string) (*Profile, error) {
	u, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("finding user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &Profile{ID: u.ID, FirstName: u.FirstName, Email: u.Email}, nil
}

// Ping checks credential store reachability
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
