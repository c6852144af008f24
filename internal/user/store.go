package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no user exists for the given key
var ErrNotFound = errors.New("user not found")

// Store defines the interface for credential store operations
type Store interface {
	// FindByEmail retrieves a user by their unique email
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create inserts a new user
	Create(ctx context.Context, u *User) error

	// Ping checks store reachability
	Ping(ctx context.Context) error

	// Close closes the store
	Close()
}

// PostgresStore implements the Store interface using a pgx connection pool
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a pgx pool for the given DSN. Connections are
// established lazily, so the process starts even when the database is down
// and individual requests report the failure.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pc, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	pc.MaxConns = 10
	pc.MaxConnLifetime = 30 * time.Minute
	pc.ConnConfig.RuntimeParams["application_name"] = "noticelens"

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates or alters the users table
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS dob DATE`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS mobile_number VARCHAR(25)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring users table: %w", err)
		}
	}
	return nil
}

// FindByEmail retrieves a user by their unique email
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT id, first_name, last_name, email, password_hash,
			COALESCE(dob::text, ''), COALESCE(mobile_number, ''), created_at
		FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.DOB, &u.MobileNumber, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

// Create inserts a new user
func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, first_name, last_name, email, password_hash, dob, mobile_number, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, '')::date, NULLIF($7, ''), $8)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.DOB, u.MobileNumber, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

// Ping checks database reachability
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}
