package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	emailConstraint       = "accounts_email_key"
	federatedIDConstraint = "accounts_federated_id_key"

	accountColumns = `id, email, name, COALESCE(password_hash, ''), COALESCE(federated_id, ''),
	COALESCE(photo, ''), COALESCE(reset_token_hash, ''), reset_token_expiry,
	credential_version, created_at, updated_at`
)

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	db DBTX
}

func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Email, &a.Name, &a.PasswordHash, &a.FederatedID,
		&a.Photo, &a.ResetTokenHash, &a.ResetTokenExpiry,
		&a.CredentialVersion, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PostgresRepository) Create(ctx context.Context, params NewAccount) (Account, error) {
	query := `INSERT INTO accounts (id, email, name, password_hash, federated_id, photo)
	VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''))
	RETURNING ` + accountColumns

	a, err := scanAccount(r.db.QueryRow(ctx, query, uuid.New(), NormalizeEmail(params.Email),
		params.Name, params.PasswordHash, params.FederatedID, params.Photo))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			switch pgErr.ConstraintName {
			case federatedIDConstraint:
				return Account{}, ErrFederatedIDTaken
			default:
				return Account{}, ErrEmailTaken
			}
		}
		return Account{}, fmt.Errorf("failed to insert account: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, "get account by id", query, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = $1`
	return r.getOne(ctx, "get account by email", query, NormalizeEmail(email))
}

func (r *PostgresRepository) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
	WHERE reset_token_hash = $1 AND reset_token_expiry > $2`
	a, err := r.getOne(ctx, "get account by reset token", query, tokenHash, now)
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrResetTokenNotFound
	}
	return a, err
}

func (r *PostgresRepository) UpdateName(ctx context.Context, id uuid.UUID, name string) (Account, error) {
	query := `UPDATE accounts SET name = $2, updated_at = now()
	WHERE id = $1 RETURNING ` + accountColumns
	return r.getOne(ctx, "update account name", query, id, name)
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) (Account, error) {
	query := `UPDATE accounts SET password_hash = $2, credential_version = credential_version + 1,
	reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = now()
	WHERE id = $1 RETURNING ` + accountColumns
	return r.getOne(ctx, "update account password", query, id, passwordHash)
}

func (r *PostgresRepository) RehashPassword(ctx context.Context, id uuid.UUID, oldHash, newHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE accounts SET password_hash = $3, updated_at = now()
	WHERE id = $1 AND password_hash = $2`, id, oldHash, newHash)
	if err != nil {
		return fmt.Errorf("failed to rehash password: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SetResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiry time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET reset_token_hash = $2, reset_token_expiry = $3, updated_at = now()
	WHERE id = $1`, id, tokenHash, expiry)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ClearResetToken(ctx context.Context, id uuid.UUID, tokenHash string) error {
	_, err := r.db.Exec(ctx, `UPDATE accounts SET reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = now()
	WHERE id = $1 AND reset_token_hash = $2`, id, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to clear reset token: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time, passwordHash string) (Account, error) {
	query := `UPDATE accounts SET password_hash = $3, credential_version = credential_version + 1,
	reset_token_hash = NULL, reset_token_expiry = NULL, updated_at = now()
	WHERE reset_token_hash = $1 AND reset_token_expiry > $2
	RETURNING ` + accountColumns
	a, err := r.getOne(ctx, "consume reset token", query, tokenHash, now, passwordHash)
	if errors.Is(err, ErrNotFound) {
		return Account{}, ErrResetTokenNotFound
	}
	return a, err
}

func (r *PostgresRepository) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET reset_token_hash = NULL, reset_token_expiry = NULL
	WHERE reset_token_expiry <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresRepository) getOne(ctx context.Context, op, query string, args ...any) (Account, error) {
	a, err := scanAccount(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, fmt.Errorf("failed to %s: %w", op, err)
	}
	return a, nil
}
