package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pharmia/backend/internal/models"
)

// ErrInsufficientCredit means a conditional debit matched no row: the balance
// was below the requested amount at write time.
var ErrInsufficientCredit = errors.New("insufficient credit")

const userColumns = `id, email, password_hash, first_name, last_name, COALESCE(phone_number,''), role,
		master_class_credits, pharmia_credits, created_at, updated_at`

// Repository handles user persistence and the per-user credit counters.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.Role,
		&u.MasterClassCredits, &u.PharmiaCredits, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email, matched case-insensitively.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

// CreateUserParams holds the fields for user creation.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  string
	Role         models.Role
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, first_name, last_name, phone_number, role)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, p.Email, p.PasswordHash, p.FirstName, p.LastName, p.PhoneNumber, string(p.Role)))
}

// UpdatePhone sets the user's phone number.
func (r *Repository) UpdatePhone(ctx context.Context, id uuid.UUID, phone string) error {
	const q = `UPDATE users SET phone_number = NULLIF($1,''), updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, phone, id)
	return err
}

// List returns all users for admin screens.
func (r *Repository) List(ctx context.Context) ([]models.UserPublic, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, first_name, last_name, COALESCE(phone_number,''), role,
		master_class_credits, pharmia_credits, created_at FROM users ORDER BY last_name, first_name, email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.UserPublic
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PhoneNumber, &u.Role,
			&u.MasterClassCredits, &u.PharmiaCredits, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// DebitCredit decrements one credit pool by amount inside the given
// transaction. The decrement only matches when the balance is still at least
// amount at write time, so two concurrent debits of a balance of 1 cannot both
// succeed. Zero rows matched means ErrInsufficientCredit and nothing applied.
func (r *Repository) DebitCredit(ctx context.Context, tx pgx.Tx, userID uuid.UUID, pool models.CreditPool, amount int) error {
	col := pool.Column()
	q := `UPDATE users SET ` + col + ` = ` + col + ` - $1, updated_at = NOW()
		WHERE id = $2 AND ` + col + ` >= $1`
	tag, err := tx.Exec(ctx, q, amount, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientCredit
	}
	return nil
}

// RefundCredit unconditionally increments one credit pool. Used for
// compensating refunds and admin grants.
func (r *Repository) RefundCredit(ctx context.Context, userID uuid.UUID, pool models.CreditPool, amount int) error {
	col := pool.Column()
	q := `UPDATE users SET ` + col + ` = ` + col + ` + $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, amount, userID)
	return err
}

// SetCredits overwrites both balances (admin balance edit).
func (r *Repository) SetCredits(ctx context.Context, userID uuid.UUID, masterClass, pharmia int) (*models.User, error) {
	const q = `UPDATE users SET master_class_credits = $1, pharmia_credits = $2, updated_at = NOW()
		WHERE id = $3 RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, masterClass, pharmia, userID))
}

// Begin starts a transaction on the shared pool. The webinars repository uses
// it to pair a credit debit with an attendee insert.
func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}
