package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sudo-init-do/tradelink/internal/db"
)

// Store reads and writes users in Postgres.
type Store struct {
	q db.Querier
}

func NewStore(q db.Querier) *Store {
	return &Store{q: q}
}

const userColumns = `id::text, name, email, password, role, verified, is_active, bio, avatar_url, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.Verified, &u.IsActive, &u.Bio, &u.AvatarURL, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts the user and its wallet in one transaction.
func (s *Store) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	err := s.q.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO users (id, name, email, password, role)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, is_active, created_at
		), wallet AS (
			INSERT INTO wallets (user_id, balance) SELECT id, 0 FROM inserted
		)
		SELECT is_active, created_at FROM inserted`,
		u.ID, u.Name, strings.TrimSpace(u.Email), u.Password, u.Role,
	).Scan(&u.IsActive, &u.CreatedAt)
	if db.IsUniqueViolation(err, "users_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	u, err := scanUser(s.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// IsActive reports whether the account exists and is not suspended.
func (s *Store) IsActive(ctx context.Context, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	var active bool
	err := s.q.QueryRow(ctx, `SELECT is_active FROM users WHERE id = $1`, id).Scan(&active)
	if db.IsNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("account status: %w", err)
	}
	return active, nil
}

// Contact implements alerts.Contacts.
func (s *Store) Contact(ctx context.Context, id string) (string, string, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	return u.Name, u.Email, nil
}

func (s *Store) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (*User, error) {
	u, err := scanUser(s.q.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE(NULLIF($1, ''), name),
		    bio = COALESCE(NULLIF($2, ''), bio),
		    avatar_url = COALESCE(NULLIF($3, ''), avatar_url),
		    updated_at = NOW()
		WHERE id = $4
		RETURNING `+userColumns, p.Name, p.Bio, p.AvatarURL, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

func (s *Store) exec(ctx context.Context, op, sql string, args ...any) error {
	tag, err := s.q.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetVerified(ctx context.Context, id string) error {
	return s.exec(ctx, "verify user", `UPDATE users SET verified = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	return s.exec(ctx, "set password", `UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2`, hash, id)
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	return s.exec(ctx, "set active", `UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
}

// SetRoleByEmail is used by the admin bootstrap and the CLI.
func (s *Store) SetRoleByEmail(ctx context.Context, email, role string) error {
	return s.exec(ctx, "set role", `UPDATE users SET role = $1, updated_at = NOW() WHERE LOWER(email) = LOWER($2)`, role, email)
}

// List returns users newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]User, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	rows, err := s.q.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE ($1::text = '' OR role = $1)
		  AND ($2::text = '' OR name ILIKE '%' || $2 || '%' OR email ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`, f.Role, f.Search, f.Limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountByRole feeds the admin dashboard.
func (s *Store) CountByRole(ctx context.Context) (map[string]int, error) {
	rows, err := s.q.Query(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		counts[role] = n
	}
	return counts, rows.Err()
}
