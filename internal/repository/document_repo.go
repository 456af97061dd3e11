package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studybuddy-backend/internal/models"
)

type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(pool *pgxpool.Pool) *DocumentRepo {
	return &DocumentRepo{pool: pool}
}

func (r *DocumentRepo) Create(ctx context.Context, d *models.Document) error {
	d.ID = uuid.New()

	query := `INSERT INTO documents (id, owner_id, original_name, storage_key, size_bytes, page_count)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING uploaded_at`

	return r.pool.QueryRow(ctx, query,
		d.ID, d.OwnerID, d.OriginalName, d.StorageKey, d.SizeBytes, d.PageCount,
	).Scan(&d.UploadedAt)
}

func (r *DocumentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d := &models.Document{}
	query := `SELECT id, owner_id, original_name, storage_key, size_bytes, page_count, uploaded_at
		FROM documents WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.OwnerID, &d.OriginalName, &d.StorageKey, &d.SizeBytes, &d.PageCount, &d.UploadedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return d, nil
}

func (r *DocumentRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Document, error) {
	query := `SELECT id, owner_id, original_name, storage_key, size_bytes, page_count, uploaded_at
		FROM documents WHERE owner_id = $1 ORDER BY uploaded_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*models.Document{}
	for rows.Next() {
		d := &models.Document{}
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.OriginalName, &d.StorageKey, &d.SizeBytes, &d.PageCount, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM documents WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistingKeys reports which of keys belong to a document row.
func (r *DocumentRepo) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	rows, err := r.pool.Query(ctx, "SELECT storage_key FROM documents WHERE storage_key = ANY($1)", keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool, len(keys))
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		existing[key] = true
	}
	return existing, rows.Err()
}
