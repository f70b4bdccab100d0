package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
)

const DefaultTable = "pacientes"

type patientRepository struct {
	BaseRepository
	table   string
	columns map[string]bool
}

func NewPatientRepository(db *sqlx.DB, table string) repository.PatientTable {
	if table == "" {
		table = DefaultTable
	}

	columns := map[string]bool{
		model.ColumnSex:         true,
		model.ColumnSpecialties: true,
	}
	for _, c := range model.TextColumns() {
		columns[c] = true
	}

	return &patientRepository{
		BaseRepository: NewBaseRepository(db),
		table:          pq.QuoteIdentifier(table),
		columns:        columns,
	}
}

func (r *patientRepository) Select(ctx context.Context, q repository.Query) ([]model.Patient, error) {
	where, args, err := r.whereClause(q, 0)
	if err != nil {
		return nil, err
	}
	order, err := r.orderClause(q)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT * FROM %s%s%s", r.table, where, order)
	patients, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return single(q, patients)
}

func (r *patientRepository) Insert(ctx context.Context, form model.PatientForm) (model.Patient, error) {
	cols := form.Columns()
	names := make([]string, 0, len(cols))
	placeholders := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))

	for _, name := range r.orderedColumns(cols) {
		args = append(args, toArg(name, cols[name]))
		names = append(names, name)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) RETURNING *",
		r.table,
		strings.Join(names, ", "),
		strings.Join(placeholders, ", "),
	)

	patients, err := r.query(ctx, query, args...)
	if err != nil {
		return model.Patient{}, err
	}
	if len(patients) != 1 {
		return model.Patient{}, &repository.Error{Code: repository.CodeQuery, Message: "insert returned no row"}
	}
	return patients[0], nil
}

func (r *patientRepository) Update(ctx context.Context, q repository.Query, columns map[string]any) ([]model.Patient, error) {
	if len(columns) == 0 {
		return nil, &repository.Error{Code: repository.CodeQuery, Message: "update without columns"}
	}

	sets := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, name := range r.orderedColumns(columns) {
		args = append(args, toArg(name, columns[name]))
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	if len(sets) != len(columns) {
		return nil, &repository.Error{Code: repository.CodeQuery, Message: "update references unknown or read-only columns"}
	}

	where, whereArgs, err := r.whereClause(q, len(args))
	if err != nil {
		return nil, err
	}
	args = append(args, whereArgs...)

	query := fmt.Sprintf("UPDATE %s SET %s%s RETURNING *", r.table, strings.Join(sets, ", "), where)
	patients, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return single(q, patients)
}

func (r *patientRepository) Delete(ctx context.Context, q repository.Query) error {
	where, args, err := r.whereClause(q, 0)
	if err != nil {
		return err
	}
	if where == "" {
		return &repository.Error{Code: repository.CodeQuery, Message: "refusing to delete without a filter"}
	}

	query := fmt.Sprintf("DELETE FROM %s%s", r.table, where)
	if _, err := r.GetDB().ExecContext(ctx, query, args...); err != nil {
		return translate(err)
	}
	return nil
}

func (r *patientRepository) Ping(ctx context.Context) error {
	if err := r.GetDB().PingContext(ctx); err != nil {
		return translate(err)
	}
	return nil
}

func (r *patientRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.Patient, error) {
	rows, err := r.GetDB().QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	patients := []model.Patient{}
	for rows.Next() {
		values := make(map[string]interface{})
		if err := rows.MapScan(values); err != nil {
			return nil, translate(err)
		}
		p, err := fromRow(values)
		if err != nil {
			return nil, &repository.Error{Code: repository.CodeQuery, Message: err.Error(), Err: err}
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err)
	}
	return patients, nil
}

// orderedColumns returns the known, writable keys of cols in a stable order.
func (r *patientRepository) orderedColumns(cols map[string]any) []string {
	order := append(model.TextColumns(), model.ColumnSex, model.ColumnSpecialties)
	names := make([]string, 0, len(cols))
	for _, name := range order {
		if _, ok := cols[name]; ok && r.columns[name] {
			names = append(names, name)
		}
	}
	return names
}

func (r *patientRepository) filterable(column string) bool {
	return column == model.ColumnID || column == model.ColumnCreatedAt || r.columns[column]
}

// whereClause renders q's filters with placeholders numbered after offset.
func (r *patientRepository) whereClause(q repository.Query, offset int) (string, []interface{}, error) {
	var args []interface{}
	render := func(f repository.Filter) (string, error) {
		if !r.filterable(f.Column) {
			return "", &repository.Error{Code: repository.CodeQuery, Message: fmt.Sprintf("column %q does not exist", f.Column)}
		}
		switch f.Op {
		case repository.OpEq:
			args = append(args, f.Value)
			return fmt.Sprintf("%s = $%d", f.Column, offset+len(args)), nil
		case repository.OpILike:
			args = append(args, "%"+escapeLike(fmt.Sprint(f.Value))+"%")
			return fmt.Sprintf("%s ILIKE $%d ESCAPE '\\'", f.Column, offset+len(args)), nil
		}
		return "", &repository.Error{Code: repository.CodeQuery, Message: "unknown filter operator"}
	}

	var clauses []string
	for _, f := range q.Where {
		c, err := render(f)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, c)
	}
	if len(q.AnyOf) > 0 {
		var alts []string
		for _, f := range q.AnyOf {
			c, err := render(f)
			if err != nil {
				return "", nil, err
			}
			alts = append(alts, c)
		}
		clauses = append(clauses, "("+strings.Join(alts, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (r *patientRepository) orderClause(q repository.Query) (string, error) {
	if q.OrderBy == "" {
		return " ORDER BY id", nil
	}
	if !r.filterable(q.OrderBy) {
		return "", &repository.Error{Code: repository.CodeQuery, Message: fmt.Sprintf("column %q does not exist", q.OrderBy)}
	}
	dir := "ASC"
	if q.Descending {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", q.OrderBy, dir, dir), nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// toArg converts a column value to a driver argument. Empty optional text is
// stored as NULL.
func toArg(column string, v any) interface{} {
	switch val := v.(type) {
	case []string:
		return pq.Array(val)
	case string:
		if val == "" && column != model.ColumnFullName {
			return nil
		}
		return val
	}
	return v
}

func fromRow(values map[string]interface{}) (model.Patient, error) {
	var p model.Patient
	p.Specialties = []string{}

	for col, v := range values {
		if v == nil {
			continue
		}
		switch col {
		case model.ColumnID:
			id, ok := v.(int64)
			if !ok {
				return p, fmt.Errorf("unexpected id type %T", v)
			}
			p.ID = id
		case model.ColumnCreatedAt:
			ts, ok := v.(time.Time)
			if !ok {
				return p, fmt.Errorf("unexpected %s type %T", col, v)
			}
			p.CreatedAt = ts
		case model.ColumnSpecialties:
			var arr pq.StringArray
			if err := arr.Scan(v); err != nil {
				return p, fmt.Errorf("scan %s: %w", col, err)
			}
			p.Specialties = append(p.Specialties, arr...)
		default:
			p.Set(col, textValue(v))
		}
	}
	return p, nil
}

func textValue(v interface{}) string {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format("2006-01-02")
	default:
		return fmt.Sprint(val)
	}
}

func single(q repository.Query, patients []model.Patient) ([]model.Patient, error) {
	if !q.Single {
		return patients, nil
	}
	switch len(patients) {
	case 0:
		return nil, repository.ErrNoRows
	case 1:
		return patients, nil
	default:
		return nil, &repository.Error{Code: repository.CodeQuery, Message: "multiple rows returned for single-row query"}
	}
}
