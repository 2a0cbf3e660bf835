package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "email", "name", "password_hash", "federated_id", "photo",
	"reset_token_hash", "reset_token_expiry", "credential_version", "created_at", "updated_at"}

func accountRow(id uuid.UUID, email string, version int) *pgxmock.Rows {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return pgxmock.NewRows(columns).
		AddRow(id, email, "Ann", "hash", "", "", "", (*time.Time)(nil), version, now, now)
}

func TestPostgresRepository_Create(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "successful create",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs(pgxmock.AnyArg(), "ann@x.com", "Ann", "hash", "", "").
					WillReturnRows(accountRow(id, "ann@x.com", 1))
			},
		},
		{
			name: "email unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs(pgxmock.AnyArg(), "ann@x.com", "Ann", "hash", "", "").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: emailConstraint})
			},
			wantErr: ErrEmailTaken,
		},
		{
			name: "federated id unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs(pgxmock.AnyArg(), "ann@x.com", "Ann", "hash", "", "").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: federatedIDConstraint})
			},
			wantErr: ErrFederatedIDTaken,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO accounts`).
					WithArgs(pgxmock.AnyArg(), "ann@x.com", "Ann", "hash", "", "").
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewPostgresRepository(mock)
			got, err := repo.Create(context.Background(), NewAccount{Email: "Ann@X.com", Name: "Ann", PasswordHash: "hash"})

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, id, got.ID)
				assert.Equal(t, "ann@x.com", got.Email)
				assert.Equal(t, 1, got.CredentialVersion)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestPostgresRepository_GetByEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`FROM accounts WHERE lower\(email\)`).
		WithArgs("ann@x.com").
		WillReturnRows(accountRow(id, "ann@x.com", 3))
	mock.ExpectQuery(`FROM accounts WHERE lower\(email\)`).
		WithArgs("ghost@x.com").
		WillReturnError(pgx.ErrNoRows)

	repo := NewPostgresRepository(mock)

	got, err := repo.GetByEmail(context.Background(), " ANN@x.com")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 3, got.CredentialVersion)
	assert.Nil(t, got.ResetTokenExpiry)

	_, err = repo.GetByEmail(context.Background(), "ghost@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ConsumeResetToken(t *testing.T) {
	now := time.Now()

	t.Run("match", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := uuid.New()
		mock.ExpectQuery(`UPDATE accounts SET password_hash`).
			WithArgs("tokenhash", now, "newhash").
			WillReturnRows(accountRow(id, "ann@x.com", 2))

		got, err := NewPostgresRepository(mock).ConsumeResetToken(context.Background(), "tokenhash", now, "newhash")
		require.NoError(t, err)
		assert.Equal(t, 2, got.CredentialVersion)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no match", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`UPDATE accounts SET password_hash`).
			WithArgs("tokenhash", now, "newhash").
			WillReturnError(pgx.ErrNoRows)

		_, err = NewPostgresRepository(mock).ConsumeResetToken(context.Background(), "tokenhash", now, "newhash")
		assert.ErrorIs(t, err, ErrResetTokenNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_SetResetToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	expiry := time.Now().Add(time.Hour)
	mock.ExpectExec(`UPDATE accounts SET reset_token_hash`).
		WithArgs(id, "h", expiry).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE accounts SET reset_token_hash`).
		WithArgs(id, "h", expiry).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`UPDATE accounts SET reset_token_hash = NULL`).
		WithArgs(id, "h").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPostgresRepository(mock)
	require.NoError(t, repo.SetResetToken(context.Background(), id, "h", expiry))
	assert.ErrorIs(t, repo.SetResetToken(context.Background(), id, "h", expiry), ErrNotFound)
	require.NoError(t, repo.ClearResetToken(context.Background(), id, "h"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_RehashPassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE accounts SET password_hash = \$3`).
		WithArgs(id, "old", "new").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := NewPostgresRepository(mock)
	require.NoError(t, repo.RehashPassword(context.Background(), id, "old", "new"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
