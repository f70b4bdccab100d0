package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-records/pkg/errors"
)

func TestPatientFormValidate(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		f := NewPatientForm()
		f.FullName = "   "

		err := f.Validate()
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
		assert.Equal(t, "full name is required", errors.FieldsOf(err)[ColumnFullName])
	})

	t.Run("valid minimal", func(t *testing.T) {
		f := NewPatientForm()
		f.FullName = "Maria Silva"
		f.CPF = "529.982.247-25"
		assert.NoError(t, f.Validate())
	})

	t.Run("optional fields checked only when present", func(t *testing.T) {
		f := NewPatientForm()
		f.FullName = "Maria Silva"
		f.CPF = "123.456.789-00"
		f.Email = "maria@"
		f.BirthDate = "31/12/1990"
		f.Sex = Sex("X")

		fields := errors.FieldsOf(f.Validate())
		assert.Equal(t, errors.FieldErrors{
			ColumnCPF:         "invalid CPF",
			ColumnEmail:       "invalid email",
			"data_nascimento": "invalid date, expected YYYY-MM-DD",
			ColumnSex:         "invalid sex",
		}, fields)
	})
}

func TestFormFromPatient(t *testing.T) {
	p := Patient{ID: 7, CreatedAt: time.Now()}
	p.FullName = "João"
	p.City = "Recife"

	f := FormFromPatient(p)
	assert.Equal(t, "João", f.FullName)
	assert.Equal(t, "Recife", f.City)
	assert.Equal(t, "", f.Email)
	assert.NotNil(t, f.Specialties)

	p.Specialties = []string{"Ortodontia"}
	f = FormFromPatient(p)
	f.Specialties[0] = "changed"
	assert.Equal(t, "Ortodontia", p.Specialties[0])
}

func TestFormColumnsExcludeIdentity(t *testing.T) {
	f := NewPatientForm()
	f.FullName = "Maria"

	cols := f.Columns()
	assert.NotContains(t, cols, ColumnID)
	assert.NotContains(t, cols, ColumnCreatedAt)
	assert.Equal(t, "Maria", cols[ColumnFullName])
	assert.Equal(t, []string{}, cols[ColumnSpecialties])
	assert.Len(t, cols, len(TextColumns())+2)
}

func TestFormSetGet(t *testing.T) {
	f := NewPatientForm()
	require.True(t, f.Set("bairro", "Centro"))
	require.True(t, f.Set(ColumnSex, string(SexFemale)))
	assert.False(t, f.Set("unknown", "x"))
	assert.False(t, f.Set(ColumnSpecialties, "x"))

	v, ok := f.Get("bairro")
	assert.True(t, ok)
	assert.Equal(t, "Centro", v)
	assert.Equal(t, SexFemale, f.Sex)
}

func TestPatientUpdateColumns(t *testing.T) {
	name := "Ana"
	u := PatientUpdate{FullName: &name}
	assert.Equal(t, map[string]any{ColumnFullName: "Ana"}, u.Columns())
	assert.False(t, u.Empty())
	assert.True(t, PatientUpdate{}.Empty())

	f := NewPatientForm()
	f.FullName = "Ana"
	full := UpdateFromForm(f).Columns()
	assert.Equal(t, f.Columns(), full)
}

func TestPatientUpdateValidate(t *testing.T) {
	blank := " "
	badCPF := "111.111.111-11"
	empty := ""
	u := PatientUpdate{FullName: &blank, CPF: &badCPF, Email: &empty}

	fields := errors.FieldsOf(u.Validate())
	assert.Len(t, fields, 2)
	assert.Contains(t, fields, ColumnFullName)
	assert.Contains(t, fields, ColumnCPF)

	assert.NoError(t, PatientUpdate{}.Validate())
}

func TestApply(t *testing.T) {
	f := NewPatientForm()
	f.FullName = "Old"
	f.Apply(map[string]any{ColumnFullName: "New", ColumnSpecialties: []string{"Endodontia"}, "bogus": 1})

	assert.Equal(t, "New", f.FullName)
	assert.Equal(t, []string{"Endodontia"}, f.Specialties)
}

func TestPageOf(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page, info := PageOf(items, Pagination{Page: 1, PageSize: 2})
	assert.Equal(t, []int{3, 4}, page)
	assert.Equal(t, PageInfo{Page: 1, PageSize: 2, Total: 5, Pages: 3}, info)

	page, _ = PageOf(items, Pagination{Page: 9, PageSize: 2})
	assert.Empty(t, page)

	_, info = PageOf(items, Pagination{})
	assert.Equal(t, DefaultPageSize, info.PageSize)
}
