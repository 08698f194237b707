package patient

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

const patientCols = `id, full_name, birth_date, gender, cpf, rg,
	contact_info, emergency_contact, insurance_info,
	status, discharge_date, discharge_reason, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (
			id, full_name, birth_date, gender, cpf, rg,
			contact_info, emergency_contact, insurance_info,
			status, discharge_date, discharge_reason, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		p.ID, p.FullName, p.BirthDate, p.Gender, p.CPF, p.RG,
		p.Contact, p.Emergency, p.Insurance,
		p.Status, p.DischargeDate, p.DischargeReason, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return &DuplicateError{ExistingCPF: p.FormattedCPF()}
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) GetByCPF(ctx context.Context, cleanCPF string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE cpf = $1`, cleanCPF))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) GetByNameAndBirthDate(ctx context.Context, fullName string, birthDate time.Time) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE lower(full_name) = lower($1) AND birth_date = $2`,
		fullName, birthDate))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			full_name=$2, birth_date=$3, gender=$4, cpf=$5, rg=$6,
			contact_info=$7, emergency_contact=$8, insurance_info=$9,
			status=$10, discharge_date=$11, discharge_reason=$12, updated_at=$13
		WHERE id = $1`,
		p.ID, p.FullName, p.BirthDate, p.Gender, p.CPF, p.RG,
		p.Contact, p.Emergency, p.Insurance,
		p.Status, p.DischargeDate, p.DischargeReason, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return &DuplicateError{ExistingCPF: p.FormattedCPF()}
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

// sortColumns is the allow-list mapping API sort fields to columns.
var sortColumns = map[string]string{
	"name":       "full_name",
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
}

func (r *repoPG) Search(ctx context.Context, criteria SearchCriteria, page pagination.Params) ([]*Patient, int, error) {
	var conditions []string
	var args []interface{}
	idx := 1

	add := func(cond string, vals ...interface{}) {
		conditions = append(conditions, cond)
		args = append(args, vals...)
		idx += len(vals)
	}

	if criteria.Query != "" {
		like := "%" + criteria.Query + "%"
		cleanQuery := stripNonDigits(criteria.Query)
		if cleanQuery == "" {
			cleanQuery = criteria.Query
		}
		add(fmt.Sprintf(`(full_name ILIKE $%d
			OR contact_info->>'email' ILIKE $%d
			OR contact_info->>'phone_primary' ILIKE $%d
			OR cpf LIKE $%d)`, idx, idx+1, idx+2, idx+3),
			like, like, like, "%"+cleanQuery+"%")
	}
	if criteria.Status != "" {
		add(fmt.Sprintf("status = $%d", idx), string(criteria.Status))
	}

	now := time.Now().UTC()
	if criteria.AgeMin != nil {
		// At least AgeMin years old: born on or before now minus AgeMin years.
		add(fmt.Sprintf("birth_date <= $%d", idx), now.AddDate(-*criteria.AgeMin, 0, 0))
	}
	if criteria.AgeMax != nil {
		// At most AgeMax years old: born after now minus AgeMax+1 years.
		add(fmt.Sprintf("birth_date > $%d", idx), now.AddDate(-(*criteria.AgeMax+1), 0, 0))
	}
	if criteria.CreatedFrom != nil {
		add(fmt.Sprintf("created_at >= $%d", idx), *criteria.CreatedFrom)
	}
	if criteria.CreatedTo != nil {
		add(fmt.Sprintf("created_at <= $%d", idx), *criteria.CreatedTo)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := sortColumns[page.SortBy]
	if !ok {
		sortCol = "full_name"
	}
	order := "ASC"
	if page.SortOrder == "desc" {
		order = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM patient%s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		patientCols, where, sortCol, order, idx, idx+1)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatientRows(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FullName, &p.BirthDate, &p.Gender, &p.CPF, &p.RG,
		&p.Contact, &p.Emergency, &p.Insurance,
		&p.Status, &p.DischargeDate, &p.DischargeReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRows(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(
		&p.ID, &p.FullName, &p.BirthDate, &p.Gender, &p.CPF, &p.RG,
		&p.Contact, &p.Emergency, &p.Insurance,
		&p.Status, &p.DischargeDate, &p.DischargeReason, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
