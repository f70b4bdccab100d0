// Package form holds the transient edit state of one patient form.
package form

import (
	"context"
	"sync"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/pkg/errors"
	"github.com/jwalitptl/patient-records/pkg/format"
)

// Submitter is the part of the record service the form writes through.
type Submitter interface {
	Create(ctx context.Context, form model.PatientForm) (model.Patient, error)
	Update(ctx context.Context, id int64, fields model.PatientUpdate) (model.Patient, error)
}

var formatters = map[string]func(string) string{
	model.ColumnCPF:        format.CPF,
	"cep":                  format.CEP,
	"telefone_residencial": format.Phone,
	model.ColumnMobile:     format.Phone,
	"telefone_comercial":   format.Phone,
}

// Controller owns the working copy while creating or editing a patient.
// It is safe for concurrent use; the service call in Submit runs without
// holding the lock.
type Controller struct {
	mu     sync.Mutex
	svc    Submitter
	state  model.PatientForm
	target *model.Patient
	errs   errors.FieldErrors
	// gen changes whenever the working copy is replaced, so that a
	// submission finishing afterwards is recognised as stale.
	gen uint64
}

// New returns a controller with an empty form for a new patient.
func New(svc Submitter) *Controller {
	return &Controller{
		svc:   svc,
		state: model.NewPatientForm(),
		errs:  errors.FieldErrors{},
	}
}

// Edit returns a controller whose form is a copy of p.
func Edit(svc Submitter, p model.Patient) *Controller {
	c := New(svc)
	c.Load(p)
	return c
}

// Load replaces the working copy with a copy of p and makes p the target.
func (c *Controller) Load(p model.Patient) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := p
	target.Specialties = append([]string{}, p.Specialties...)
	c.target = &target
	c.state = model.FormFromPatient(p)
	c.errs = errors.FieldErrors{}
	c.gen++
}

// Editing reports whether the form targets an existing patient.
func (c *Controller) Editing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target != nil
}

// Target returns the patient being edited.
func (c *Controller) Target() (model.Patient, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.target == nil {
		return model.Patient{}, false
	}
	return *c.target, true
}

// State returns a copy of the working form.
func (c *Controller) State() model.PatientForm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.FormFromPatient(model.Patient{PatientForm: c.state})
}

// Errors returns the per-field messages of the last failed validation.
func (c *Controller) Errors() errors.FieldErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(errors.FieldErrors, len(c.errs))
	for k, v := range c.errs {
		out[k] = v
	}
	return out
}

// Set assigns raw input to column, masking ID, postal code and phone
// columns, and clears that column's error. It reports false for unknown
// columns.
func (c *Controller) Set(column, value string) bool {
	if fn, ok := formatters[column]; ok {
		value = fn(value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Set(column, value) {
		return false
	}
	delete(c.errs, column)
	return true
}

// Get returns the current text of column.
func (c *Controller) Get(column string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Get(column)
}

// ToggleSpecialty adds specialty if absent and removes it otherwise.
func (c *Controller) ToggleSpecialty(specialty string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := make([]string, 0, len(c.state.Specialties)+1)
	found := false
	for _, s := range c.state.Specialties {
		if s == specialty {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		kept = append(kept, specialty)
	}
	c.state.Specialties = kept
}

// Validate checks the working copy and records its field errors.
func (c *Controller) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validate()
}

func (c *Controller) validate() error {
	err := c.state.Validate()
	c.errs = errors.FieldErrors{}
	for k, v := range errors.FieldsOf(err) {
		c.errs[k] = v
	}
	return err
}

// Submit validates the form and then creates or updates the patient.
// A validation failure makes no service call. On success a new-patient
// form is reset and an edit form drops its target; on failure the state
// is left as it was. A result arriving after the form was reloaded or
// cancelled does not touch the form; the saved row is returned with a
// stale error.
func (c *Controller) Submit(ctx context.Context) (model.Patient, error) {
	c.mu.Lock()
	if err := c.validate(); err != nil {
		c.mu.Unlock()
		return model.Patient{}, err
	}
	gen := c.gen
	form := model.FormFromPatient(model.Patient{PatientForm: c.state})
	var target *model.Patient
	if c.target != nil {
		t := *c.target
		target = &t
	}
	c.mu.Unlock()

	var (
		saved model.Patient
		err   error
	)
	if target == nil {
		saved, err = c.svc.Create(ctx, form)
	} else {
		saved, err = c.svc.Update(ctx, target.ID, model.UpdateFromForm(form))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen {
		var id int64
		if target != nil {
			id = target.ID
		}
		if err != nil {
			return model.Patient{}, err
		}
		return saved, errors.Stale("submit", id)
	}
	if err != nil {
		return model.Patient{}, err
	}

	c.reset()
	return saved, nil
}

// Cancel discards the working copy and any editing target.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

func (c *Controller) reset() {
	c.state = model.NewPatientForm()
	c.target = nil
	c.errs = errors.FieldErrors{}
	c.gen++
}
