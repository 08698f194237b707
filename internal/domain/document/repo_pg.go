package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/db"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const documentCols = `id, patient_id, file_name, storage_key, mime_type, size_bytes,
	metadata, security_info, status, uploaded_at, uploaded_by, expires_at, updated_at`

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO document (
			id, patient_id, file_name, storage_key, mime_type, size_bytes,
			metadata, security_info, status, uploaded_at, uploaded_by, expires_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		d.ID, d.PatientID, d.FileName, d.StorageKey, d.MimeType, d.SizeBytes,
		d.Metadata, d.Security, d.Status, d.UploadedAt, d.UploadedBy, d.ExpiresAt, d.UpdatedAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx,
		`SELECT `+documentCols+` FROM document WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

func (r *repoPG) Update(ctx context.Context, d *Document) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document SET
			file_name=$2, mime_type=$3, size_bytes=$4,
			metadata=$5, security_info=$6, status=$7, expires_at=$8, updated_at=$9
		WHERE id = $1`,
		d.ID, d.FileName, d.MimeType, d.SizeBytes,
		d.Metadata, d.Security, d.Status, d.ExpiresAt, d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM document WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, criteria SearchCriteria, page pagination.Params) ([]*Document, int, error) {
	var conditions []string
	var args []interface{}
	idx := 1

	add := func(cond string, vals ...interface{}) {
		conditions = append(conditions, cond)
		args = append(args, vals...)
		idx += len(vals)
	}

	if criteria.PatientID != nil {
		add(fmt.Sprintf("patient_id = $%d", idx), *criteria.PatientID)
	}
	if criteria.DocumentType != "" {
		add(fmt.Sprintf("metadata->>'document_type' = $%d", idx), criteria.DocumentType)
	}
	if criteria.Status != "" {
		add(fmt.Sprintf("status = $%d", idx), string(criteria.Status))
	}
	if criteria.Query != "" {
		like := "%" + criteria.Query + "%"
		add(fmt.Sprintf(`(file_name ILIKE $%d
			OR metadata->>'title' ILIKE $%d
			OR metadata->>'description' ILIKE $%d)`, idx, idx+1, idx+2),
			like, like, like)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM document`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "DESC"
	if page.SortOrder == "asc" {
		order = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM document%s ORDER BY uploaded_at %s LIMIT $%d OFFSET $%d`,
		documentCols, where, order, idx, idx+1)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, 0, err
		}
		documents = append(documents, d)
	}
	return documents, total, rows.Err()
}

func (r *repoPG) ListArchiveCandidates(ctx context.Context, now time.Time) ([]*Document, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+documentCols+` FROM document
		WHERE status = 'active'
		  AND (
			(expires_at IS NOT NULL AND expires_at < $1)
			OR (COALESCE((metadata->>'retention_days')::int, 0) > 0
				AND uploaded_at + make_interval(days => (metadata->>'retention_days')::int) < $1)
		  )`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(
		&d.ID, &d.PatientID, &d.FileName, &d.StorageKey, &d.MimeType, &d.SizeBytes,
		&d.Metadata, &d.Security, &d.Status, &d.UploadedAt, &d.UploadedBy, &d.ExpiresAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) (*Document, error) {
	var d Document
	err := rows.Scan(
		&d.ID, &d.PatientID, &d.FileName, &d.StorageKey, &d.MimeType, &d.SizeBytes,
		&d.Metadata, &d.Security, &d.Status, &d.UploadedAt, &d.UploadedBy, &d.ExpiresAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
