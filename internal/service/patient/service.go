package patient

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
	"github.com/jwalitptl/patient-records/pkg/errors"
	"github.com/jwalitptl/patient-records/pkg/logger"
	"github.com/jwalitptl/patient-records/pkg/metrics"
)

// PatientService is the record service contract used by the HTTP handler
// and the form and list controllers.
type PatientService interface {
	ListAll(ctx context.Context) ([]model.Patient, error)
	GetByID(ctx context.Context, id int64) (model.Patient, error)
	Create(ctx context.Context, form model.PatientForm) (model.Patient, error)
	Update(ctx context.Context, id int64, fields model.PatientUpdate) (model.Patient, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, term string) ([]model.Patient, error)
}

const (
	opList   = "list"
	opGet    = "get"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opSearch = "search"
)

var messages = map[string]string{
	opList:   "failed to fetch patients",
	opGet:    "failed to fetch patient",
	opCreate: "failed to create patient",
	opUpdate: "failed to update patient",
	opDelete: "failed to delete patient",
	opSearch: "failed to search patients",
}

// Service round-trips every call to the store; it holds no cache.
type Service struct {
	table   repository.PatientTable
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewService(table repository.PatientTable, log *logger.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		table:   table,
		log:     log,
		metrics: m,
	}
}

// ListAll returns every patient, newest first.
func (s *Service) ListAll(ctx context.Context) ([]model.Patient, error) {
	start := time.Now()
	patients, err := s.table.Select(ctx, repository.Newest())
	s.metrics.ObserveStore(opList, start, err)
	if err != nil {
		return nil, s.fail(opList, 0, err)
	}
	return nonNil(patients), nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (model.Patient, error) {
	start := time.Now()
	rows, err := s.table.Select(ctx, repository.ByID(id))
	s.metrics.ObserveStore(opGet, start, err)
	if err != nil {
		return model.Patient{}, s.fail(opGet, id, err)
	}
	return rows[0], nil
}

// Create inserts form and returns the row with its store-assigned id and
// creation time. A blank full name is rejected without a store call.
func (s *Service) Create(ctx context.Context, form model.PatientForm) (model.Patient, error) {
	if strings.TrimSpace(form.FullName) == "" {
		return model.Patient{}, errors.Validation(errors.FieldErrors{model.ColumnFullName: "full name is required"})
	}
	form.Normalize()

	start := time.Now()
	p, err := s.table.Insert(ctx, form)
	s.metrics.ObserveStore(opCreate, start, err)
	if err != nil {
		return model.Patient{}, s.fail(opCreate, 0, err)
	}

	s.log.Debug("patient created", "patient_id", p.ID)
	return p, nil
}

// Update sends only the supplied fields. An update with no fields returns
// the stored row unchanged.
func (s *Service) Update(ctx context.Context, id int64, fields model.PatientUpdate) (model.Patient, error) {
	if fields.FullName != nil && strings.TrimSpace(*fields.FullName) == "" {
		return model.Patient{}, errors.Validation(errors.FieldErrors{model.ColumnFullName: "full name is required"})
	}

	columns := fields.Columns()
	if len(columns) == 0 {
		p, err := s.GetByID(ctx, id)
		if err != nil {
			return model.Patient{}, s.rewrap(opUpdate, err)
		}
		return p, nil
	}

	start := time.Now()
	rows, err := s.table.Update(ctx, repository.ByID(id), columns)
	s.metrics.ObserveStore(opUpdate, start, err)
	if err != nil {
		return model.Patient{}, s.fail(opUpdate, id, err)
	}

	s.log.Debug("patient updated", "patient_id", id, "columns", len(columns))
	return rows[0], nil
}

// Delete removes the row. Deleting an id that does not exist succeeds.
func (s *Service) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.table.Delete(ctx, repository.Query{Where: []repository.Filter{repository.Eq(model.ColumnID, id)}})
	s.metrics.ObserveStore(opDelete, start, err)
	if err != nil {
		return s.fail(opDelete, id, err)
	}

	s.log.Debug("patient deleted", "patient_id", id)
	return nil
}

// Search matches term case-insensitively against full name, CPF and email.
// A blank term behaves exactly like ListAll.
func (s *Service) Search(ctx context.Context, term string) ([]model.Patient, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		patients, err := s.ListAll(ctx)
		if err != nil {
			return nil, s.rewrap(opSearch, err)
		}
		return patients, nil
	}

	q := repository.Newest()
	q.AnyOf = []repository.Filter{
		repository.ILike(model.ColumnFullName, term),
		repository.ILike(model.ColumnCPF, term),
		repository.ILike(model.ColumnEmail, term),
	}

	start := time.Now()
	patients, err := s.table.Select(ctx, q)
	s.metrics.ObserveStore(opSearch, start, err)
	if err != nil {
		return nil, s.fail(opSearch, 0, err)
	}
	return nonNil(patients), nil
}

// fail logs the store error and converts it into an AppError.
func (s *Service) fail(op string, id int64, err error) error {
	msg := messages[op]

	fields := []interface{}{"op", op}
	if id != 0 {
		fields = append(fields, "patient_id", id)
	}
	s.log.Error(err, msg, fields...)

	if stderrors.Is(err, repository.ErrNoRows) {
		return errors.NotFound(op, msg, err)
	}
	return errors.Remote(op, msg, err)
}

// rewrap re-labels an AppError produced by a delegated operation.
func (s *Service) rewrap(op string, err error) error {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return errors.Remote(op, messages[op], err)
	}
	return &errors.AppError{
		Kind:    appErr.Kind,
		Op:      op,
		Message: messages[op],
		Err:     appErr.Err,
	}
}

func nonNil(patients []model.Patient) []model.Patient {
	if patients == nil {
		return []model.Patient{}
	}
	return patients
}
