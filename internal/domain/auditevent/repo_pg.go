package auditevent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/db"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const eventCols = `id, user_id, user_name, action, resource_type, resource_id,
	patient_id, details, ip_address, request_id, status_code, created_at`

func (r *repoPG) Record(ctx context.Context, e Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_event (
			id, user_id, user_name, action, resource_type, resource_id,
			patient_id, details, ip_address, request_id, status_code, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.UserID, e.UserName, e.Action, e.ResourceType, e.ResourceID,
		e.PatientID, e.Details, e.IPAddress, e.RequestID, e.StatusCode, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

func (r *repoPG) Search(ctx context.Context, criteria SearchCriteria, page pagination.Params) ([]*Event, int, error) {
	var where []string
	var args []interface{}
	idx := 1

	add := func(cond string, val interface{}) {
		where = append(where, fmt.Sprintf(cond, idx))
		args = append(args, val)
		idx++
	}

	if criteria.UserID != "" {
		add("user_id = $%d", criteria.UserID)
	}
	if criteria.Action != "" {
		add("action = $%d", criteria.Action)
	}
	if criteria.ResourceType != "" {
		add("resource_type = $%d", criteria.ResourceType)
	}
	if criteria.ResourceID != "" {
		add("resource_id = $%d", criteria.ResourceID)
	}
	if criteria.PatientID != "" {
		add("patient_id = $%d", criteria.PatientID)
	}
	if criteria.From != nil {
		add("created_at >= $%d", *criteria.From)
	}
	if criteria.To != nil {
		add("created_at <= $%d", *criteria.To)
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_event`+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := fmt.Sprintf("SELECT %s FROM audit_event%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		eventCols, whereClause, idx, idx+1)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.conn(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.UserID, &e.UserName, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.PatientID, &e.Details, &e.IPAddress, &e.RequestID, &e.StatusCode, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		events = append(events, &e)
	}
	return events, total, rows.Err()
}
