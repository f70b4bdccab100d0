package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository"
)

func tickingClock() func() time.Time {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
}

func form(name, cpf, email string) model.PatientForm {
	f := model.NewPatientForm()
	f.FullName = name
	f.CPF = cpf
	f.Email = email
	return f
}

func TestInsertAssignsIdentity(t *testing.T) {
	ctx := context.Background()
	table := NewPatientTable(WithClock(tickingClock()))

	a, err := table.Insert(ctx, form("Ana", "", ""))
	require.NoError(t, err)
	b, err := table.Insert(ctx, form("Bruno", "", ""))
	require.NoError(t, err)

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.True(t, b.CreatedAt.After(a.CreatedAt))
	assert.NotNil(t, a.Specialties)
}

func TestSelectOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	table := NewPatientTable(WithClock(tickingClock()))

	_, _ = table.Insert(ctx, form("Maria Silva", "529.982.247-25", "maria@x.com"))
	_, _ = table.Insert(ctx, form("João Souza", "111.444.777-35", "joao@y.com"))
	_, _ = table.Insert(ctx, form("Carla", "", "CARLA.SILVA@z.com"))

	rows, err := table.Select(ctx, repository.Newest())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Carla", rows[0].FullName)
	assert.Equal(t, "Maria Silva", rows[2].FullName)

	q := repository.Newest()
	q.AnyOf = []repository.Filter{
		repository.ILike(model.ColumnFullName, "silva"),
		repository.ILike(model.ColumnCPF, "silva"),
		repository.ILike(model.ColumnEmail, "silva"),
	}
	rows, err = table.Select(ctx, q)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Carla", rows[0].FullName)
	assert.Equal(t, "Maria Silva", rows[1].FullName)
}

func TestSelectSingle(t *testing.T) {
	ctx := context.Background()
	table := NewPatientTable()

	_, err := table.Select(ctx, repository.ByID(99))
	assert.ErrorIs(t, err, repository.ErrNoRows)

	p, _ := table.Insert(ctx, form("Ana", "", ""))
	rows, err := table.Select(ctx, repository.ByID(p.ID))
	require.NoError(t, err)
	assert.Equal(t, p, rows[0])
}

func TestUpdatePartial(t *testing.T) {
	ctx := context.Background()
	table := NewPatientTable()

	p, _ := table.Insert(ctx, form("Ana", "529.982.247-25", "ana@x.com"))

	rows, err := table.Update(ctx, repository.ByID(p.ID), map[string]any{model.ColumnEmail: "ana@new.com"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ana@new.com", rows[0].Email)
	assert.Equal(t, "529.982.247-25", rows[0].CPF)
	assert.Equal(t, p.CreatedAt, rows[0].CreatedAt)

	_, err = table.Update(ctx, repository.ByID(404), map[string]any{model.ColumnEmail: "x"})
	assert.ErrorIs(t, err, repository.ErrNoRows)

	_, err = table.Update(ctx, repository.ByID(p.ID), map[string]any{model.ColumnID: int64(5)})
	var storeErr *repository.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, repository.CodeConstraint, storeErr.Code)
}

func TestDeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()
	table := NewPatientTable()

	p, _ := table.Insert(ctx, form("Ana", "", ""))
	require.NoError(t, table.Delete(ctx, repository.ByID(p.ID)))
	require.NoError(t, table.Delete(ctx, repository.ByID(p.ID)))

	_, err := table.Select(ctx, repository.ByID(p.ID))
	assert.ErrorIs(t, err, repository.ErrNoRows)
}

func TestReturnedRowsAreCopies(t *testing.T) {
	ctx := context.Background()
	table := NewPatientTable()

	f := form("Ana", "", "")
	f.Specialties = []string{"Ortodontia"}
	p, _ := table.Insert(ctx, f)
	p.Specialties[0] = "mutated"

	rows, _ := table.Select(ctx, repository.ByID(p.ID))
	assert.Equal(t, []string{"Ortodontia"}, rows[0].Specialties)
}

func TestUnknownColumn(t *testing.T) {
	table := NewPatientTable()
	_, _ = table.Insert(context.Background(), form("Ana", "", ""))

	_, err := table.Select(context.Background(), repository.Query{Where: []repository.Filter{repository.Eq("nope", "x")}})
	var storeErr *repository.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, repository.CodeQuery, storeErr.Code)
}
