package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/detailerapp/backend/internal/common"
	"github.com/detailerapp/backend/internal/dbx"
)

// PostgresStore keeps every collection in a single documents table with a
// jsonb fields column. Collection plus doc id form the primary key.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	query :=
		`SELECT fields FROM documents
		 WHERE collection = $1 AND doc_id = $2
		 `

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decoding document '%s/%s': %w", collection, id, err)
	}

	return &Document{Collection: collection, ID: id, Fields: fields}, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding document '%s/%s': %w", collection, id, err)
	}

	query :=
		`INSERT INTO documents (collection, doc_id, fields)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (collection, doc_id) DO UPDATE SET fields = EXCLUDED.fields
		 `

	if _, err := s.db.ExecContext(ctx, query, collection, id, raw); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Update merges fields into an existing document. Unlike Set it refuses to
// create the document, matching the remote store's update semantics.
func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encoding document '%s/%s': %w", collection, id, err)
	}

	query :=
		`UPDATE documents SET fields = fields || $3
		 WHERE collection = $1 AND doc_id = $2
		 `

	res, err := s.db.ExecContext(ctx, query, collection, id, raw)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND doc_id = $2`
	if _, err := s.db.ExecContext(ctx, query, collection, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, collection, field, value string) ([]Document, error) {
	queryBuilder := squirrel.
		Select("doc_id", "fields").
		From("documents").
		Where(squirrel.Eq{"collection": collection}).
		Where("fields->>? = ?", field, value).
		OrderBy("doc_id").
		PlaceholderFormat(squirrel.Dollar)

	query, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields := map[string]any{}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decoding document '%s/%s': %w", collection, id, err)
		}
		docs = append(docs, Document{Collection: collection, ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return docs, nil
}

// BatchDelete removes all given documents inside one transaction: the batch
// commits or rolls back as a unit, and nothing is promised across batches.
func (s *PostgresStore) BatchDelete(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `DELETE FROM documents WHERE collection = $1 AND doc_id = $2`
		for _, doc := range docs {
			if _, err := tx.ExecContext(ctx, query, doc.Collection, doc.ID); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}
		return nil
	})
}
