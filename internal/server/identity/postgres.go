package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/detailerapp/backend/internal/common"
	"github.com/detailerapp/backend/internal/dbx"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db dbx.DBTX
}

func NewPostgresStore(db dbx.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (r *PostgresStore) Create(ctx context.Context, ident *Identity) error {
	query :=
		`INSERT INTO identities (uid, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		ident.UID, ident.Email, ident.PasswordHash).Scan(&ident.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresStore) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	query :=
		`SELECT uid, email, password_hash, created_at FROM identities
		 WHERE email = $1
		 `

	ident := &Identity{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&ident.UID, &ident.Email, &ident.PasswordHash, &ident.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return ident, nil
}

func (r *PostgresStore) Delete(ctx context.Context, uid string) error {
	query := `DELETE FROM identities WHERE uid = $1`
	if _, err := r.db.ExecContext(ctx, query, uid); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
