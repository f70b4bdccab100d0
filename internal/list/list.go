// Package list holds the in-memory patient collection behind the table
// view: client-side filtering, paging and optimistic merges.
package list

import (
	"context"
	"strings"
	"sync"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/pkg/errors"
)

// Service is the part of the record service the list reads and deletes
// through.
type Service interface {
	ListAll(ctx context.Context) ([]model.Patient, error)
	Delete(ctx context.Context, id int64) error
}

// Ticket identifies the collection state a flow started from. A result
// applied with an outdated ticket is discarded.
type Ticket struct {
	gen uint64
	id  int64
}

// ID returns the patient the ticket was issued for, or 0.
func (t Ticket) ID() int64 { return t.id }

// View is one page of the filtered collection.
type View struct {
	Items []model.Patient `json:"items"`
	model.PageInfo
}

type Controller struct {
	mu     sync.RWMutex
	svc    Service
	rows   []model.Patient
	filter string
	page   model.Pagination
	// gen changes on every reload.
	gen uint64
}

// New returns an empty controller showing pageSize rows per page.
func New(svc Service, pageSize int) *Controller {
	return &Controller{
		svc:  svc,
		rows: []model.Patient{},
		page: model.Pagination{PageSize: pageSize}.Normalize(),
	}
}

// Load replaces the collection with a fresh ListAll. Tickets issued before
// the reload become stale. If another reload finished first the result is
// discarded.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	rows, err := c.svc.ListAll(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return errors.Stale("load", 0)
	}
	c.rows = append([]model.Patient{}, rows...)
	c.gen++
	return nil
}

// Begin issues a ticket for a flow targeting id, or 0 for a create.
func (c *Controller) Begin(id int64) Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Ticket{gen: c.gen, id: id}
}

// Len returns the size of the unfiltered collection.
func (c *Controller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Get returns the held row with the given id.
func (c *Controller) Get(id int64) (model.Patient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.rows[i], true
	}
	return model.Patient{}, false
}

// SetFilter changes the search term and returns to the first page.
func (c *Controller) SetFilter(term string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = strings.TrimSpace(term)
	c.page.Page = 0
}

func (c *Controller) Filter() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}

// SetPage selects a zero-based page.
func (c *Controller) SetPage(page int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.Page = page
	c.page = c.page.Normalize()
}

// SetPageSize changes the page size and returns to the first page.
func (c *Controller) SetPageSize(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page = model.Pagination{PageSize: size}.Normalize()
}

// Filtered returns every row matching the current filter, in held order.
func (c *Controller) Filtered() []model.Patient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filtered()
}

// Page returns the current page of the filtered rows. A page past the end
// shows the last page.
func (c *Controller) Page() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows := c.filtered()
	p := c.page
	if pages := (len(rows) + p.PageSize - 1) / p.PageSize; pages > 0 && p.Page >= pages {
		p.Page = pages - 1
	}
	items, info := model.PageOf(rows, p)
	return View{Items: items, PageInfo: info}
}

func (c *Controller) filtered() []model.Patient {
	out := make([]model.Patient, 0, len(c.rows))
	for _, p := range c.rows {
		if matches(p, c.filter) {
			out = append(out, p)
		}
	}
	return out
}

// matches compares name and email case-insensitively, CPF and mobile phone
// as typed.
func matches(p model.Patient, term string) bool {
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	return strings.Contains(strings.ToLower(p.FullName), lower) ||
		strings.Contains(p.CPF, term) ||
		strings.Contains(strings.ToLower(p.Email), lower) ||
		strings.Contains(p.MobilePhone, term)
}

// ApplyCreated prepends p unless the collection was reloaded since t.
func (c *Controller) ApplyCreated(t Ticket, p model.Patient) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != t.gen {
		return errors.Stale("create", p.ID)
	}
	c.rows = append([]model.Patient{p}, c.rows...)
	return nil
}

// ApplyUpdated replaces the ticket's row with p unless the collection was
// reloaded or the row is gone.
func (c *Controller) ApplyUpdated(t Ticket, p model.Patient) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(t.id)
	if c.gen != t.gen || i < 0 || p.ID != t.id {
		return errors.Stale("update", t.id)
	}
	c.rows[i] = p
	return nil
}

// ApplyRemoved drops the ticket's row unless the collection was reloaded
// or the row is already gone.
func (c *Controller) ApplyRemoved(t Ticket) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.index(t.id)
	if c.gen != t.gen || i < 0 {
		return errors.Stale("delete", t.id)
	}
	c.rows = append(c.rows[:i:i], c.rows[i+1:]...)
	return nil
}

// Delete removes the patient at the store and then from the collection.
// On failure the row is kept and the error returned.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	t := c.Begin(id)
	if err := c.svc.Delete(ctx, id); err != nil {
		return err
	}
	return c.ApplyRemoved(t)
}

func (c *Controller) index(id int64) int {
	for i, p := range c.rows {
		if p.ID == id {
			return i
		}
	}
	return -1
}
