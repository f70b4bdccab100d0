package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
)

type patientTable struct {
	mu     sync.RWMutex
	rows   map[int64]model.Patient
	nextID int64
	now    func() time.Time
}

type Option func(*patientTable)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(t *patientTable) { t.now = now }
}

func NewPatientTable(opts ...Option) repository.PatientTable {
	t := &patientTable{
		rows:   make(map[int64]model.Patient),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *patientTable) Select(ctx context.Context, q repository.Query) ([]model.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	rows, err := t.match(q)
	if err != nil {
		return nil, err
	}
	if err := sortRows(rows, q); err != nil {
		return nil, err
	}
	if q.Single {
		if len(rows) == 0 {
			return nil, repository.ErrNoRows
		}
		if len(rows) > 1 {
			return nil, &repository.Error{Code: repository.CodeQuery, Message: "multiple rows returned for single-row query"}
		}
	}
	return rows, nil
}

func (t *patientTable) Insert(ctx context.Context, form model.PatientForm) (model.Patient, error) {
	if err := ctx.Err(); err != nil {
		return model.Patient{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p := model.Patient{
		ID:          t.nextID,
		CreatedAt:   t.now(),
		PatientForm: model.FormFromPatient(model.Patient{PatientForm: form}),
	}
	t.nextID++
	t.rows[p.ID] = p

	return clone(p), nil
}

func (t *patientTable) Update(ctx context.Context, q repository.Query, columns map[string]any) ([]model.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for col := range columns {
		if col == model.ColumnID || col == model.ColumnCreatedAt {
			return nil, &repository.Error{Code: repository.CodeConstraint, Message: fmt.Sprintf("column %q is read-only", col)}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.match(q)
	if err != nil {
		return nil, err
	}
	if q.Single && len(rows) == 0 {
		return nil, repository.ErrNoRows
	}

	updated := make([]model.Patient, 0, len(rows))
	for _, p := range rows {
		p.Apply(columns)
		t.rows[p.ID] = p
		updated = append(updated, clone(p))
	}
	return updated, nil
}

func (t *patientTable) Delete(ctx context.Context, q repository.Query) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	rows, err := t.match(q)
	if err != nil {
		return err
	}
	for _, p := range rows {
		delete(t.rows, p.ID)
	}
	return nil
}

func (t *patientTable) Ping(ctx context.Context) error {
	return ctx.Err()
}

// match returns copies of the rows satisfying q. Callers hold the lock.
func (t *patientTable) match(q repository.Query) ([]model.Patient, error) {
	var out []model.Patient
	for _, p := range t.rows {
		ok, err := matchAll(p, q.Where)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if len(q.AnyOf) > 0 {
			ok, err = matchAny(p, q.AnyOf)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, clone(p))
	}
	return out, nil
}

func matchAll(p model.Patient, filters []repository.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matches(p, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchAny(p model.Patient, filters []repository.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matches(p, f)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matches(p model.Patient, f repository.Filter) (bool, error) {
	if f.Column == model.ColumnID {
		id, ok := f.Value.(int64)
		if !ok || f.Op != repository.OpEq {
			return false, &repository.Error{Code: repository.CodeQuery, Message: fmt.Sprintf("unsupported filter on %s", f.Column)}
		}
		return p.ID == id, nil
	}

	value, ok := p.Get(f.Column)
	if !ok {
		return false, &repository.Error{Code: repository.CodeQuery, Message: fmt.Sprintf("column %q does not exist", f.Column)}
	}
	want := fmt.Sprint(f.Value)

	switch f.Op {
	case repository.OpEq:
		return value == want, nil
	case repository.OpILike:
		return strings.Contains(strings.ToLower(value), strings.ToLower(want)), nil
	}
	return false, &repository.Error{Code: repository.CodeQuery, Message: "unknown filter operator"}
}

func sortRows(rows []model.Patient, q repository.Query) error {
	if q.OrderBy == "" {
		sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
		return nil
	}

	var less func(a, b model.Patient) bool
	switch q.OrderBy {
	case model.ColumnCreatedAt:
		less = func(a, b model.Patient) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
	case model.ColumnID:
		less = func(a, b model.Patient) bool { return a.ID < b.ID }
	default:
		if _, ok := (&model.PatientForm{}).Get(q.OrderBy); !ok {
			return &repository.Error{Code: repository.CodeQuery, Message: fmt.Sprintf("column %q does not exist", q.OrderBy)}
		}
		less = func(a, b model.Patient) bool {
			av, _ := a.Get(q.OrderBy)
			bv, _ := b.Get(q.OrderBy)
			if av == bv {
				return a.ID < b.ID
			}
			return av < bv
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if q.Descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
	return nil
}

func clone(p model.Patient) model.Patient {
	p.Specialties = append([]string{}, p.Specialties...)
	return p
}
