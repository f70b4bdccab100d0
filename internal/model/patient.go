package model

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/patient-records/pkg/errors"
	pkgvalidator "github.com/jwalitptl/patient-records/pkg/validator"
)

type Sex string

const (
	SexUnset  Sex = ""
	SexMale   Sex = "Masculino"
	SexFemale Sex = "Feminino"
	SexOther  Sex = "Outro"
)

func (s Sex) Valid() bool {
	switch s {
	case SexUnset, SexMale, SexFemale, SexOther:
		return true
	}
	return false
}

// Store column names
const (
	ColumnID          = "id"
	ColumnCreatedAt   = "data_cadastro"
	ColumnFullName    = "nome_completo"
	ColumnCPF         = "cpf"
	ColumnEmail       = "email"
	ColumnMobile      = "celular"
	ColumnSex         = "sexo"
	ColumnSpecialties = "especialidades"
)

// Patient is a persisted patient row. ID and CreatedAt are assigned by the
// store; an empty string means the optional field is absent.
type Patient struct {
	ID        int64     `json:"id" db:"id"`
	CreatedAt time.Time `json:"data_cadastro" db:"data_cadastro"`
	PatientForm
}

// PatientForm is the identity-stripped working copy of a patient, used on
// create and while editing.
type PatientForm struct {
	LegacyCode   string   `json:"registro_antigo" db:"registro_antigo"`
	FullName     string   `json:"nome_completo" db:"nome_completo" validate:"notblank"`
	Notes        string   `json:"observacoes" db:"observacoes"`
	Sex          Sex      `json:"sexo" db:"sexo"`
	Dentist      string   `json:"cirurgiao_dentista" db:"cirurgiao_dentista"`
	BirthDate    string   `json:"data_nascimento" db:"data_nascimento" validate:"omitempty,datetime=2006-01-02"`
	MaritalState string   `json:"estado_civil" db:"estado_civil"`
	HomePhone    string   `json:"telefone_residencial" db:"telefone_residencial"`
	MobilePhone  string   `json:"celular" db:"celular"`
	WorkPhone    string   `json:"telefone_comercial" db:"telefone_comercial"`
	Email        string   `json:"email" db:"email" validate:"omitempty,contact_email"`
	Street       string   `json:"endereco" db:"endereco"`
	Number       string   `json:"numero" db:"numero"`
	Complement   string   `json:"complemento" db:"complemento"`
	District     string   `json:"bairro" db:"bairro"`
	City         string   `json:"cidade" db:"cidade"`
	State        string   `json:"estado" db:"estado"`
	PostalCode   string   `json:"cep" db:"cep"`
	CPF          string   `json:"cpf" db:"cpf" validate:"omitempty,cpf"`
	SecondaryID  string   `json:"rg" db:"rg"`
	Insurer      string   `json:"convenio" db:"convenio"`
	Plan         string   `json:"plano" db:"plano"`
	Specialties  []string `json:"especialidades" db:"especialidades"`
	Referral     string   `json:"indicacao" db:"indicacao"`
}

// NewPatientForm returns an empty form ready for a new patient.
func NewPatientForm() PatientForm {
	return PatientForm{Specialties: []string{}}
}

// FormFromPatient copies every field of p into a fresh form.
func FormFromPatient(p Patient) PatientForm {
	f := p.PatientForm
	f.Specialties = append([]string{}, p.Specialties...)
	return f
}

// Normalize makes absent collections empty rather than nil. It is the only
// place optional representation is decided.
func (f *PatientForm) Normalize() {
	if f.Specialties == nil {
		f.Specialties = []string{}
	}
}

var fieldMessages = map[string]string{
	"notblank":      "full name is required",
	"cpf":           "invalid CPF",
	"contact_email": "invalid email",
	"datetime":      "invalid date, expected YYYY-MM-DD",
}

// Validate checks the form before any store call.
func (f PatientForm) Validate() error {
	fields := errors.FieldErrors{}

	if err := pkgvalidator.Engine().Struct(f); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		for _, fe := range verrs {
			msg, ok := fieldMessages[fe.Tag()]
			if !ok {
				msg = "invalid value"
			}
			fields[fe.Field()] = msg
		}
	}

	if !f.Sex.Valid() {
		fields[ColumnSex] = "invalid sex"
	}

	if len(fields) > 0 {
		return errors.Validation(fields)
	}
	return nil
}

type field struct {
	column string
	value  *string
}

// textFields lists the plain text columns of f. Sex and specialties are
// handled separately.
func (f *PatientForm) textFields() []field {
	return []field{
		{"registro_antigo", &f.LegacyCode},
		{ColumnFullName, &f.FullName},
		{"observacoes", &f.Notes},
		{"cirurgiao_dentista", &f.Dentist},
		{"data_nascimento", &f.BirthDate},
		{"estado_civil", &f.MaritalState},
		{"telefone_residencial", &f.HomePhone},
		{ColumnMobile, &f.MobilePhone},
		{"telefone_comercial", &f.WorkPhone},
		{ColumnEmail, &f.Email},
		{"endereco", &f.Street},
		{"numero", &f.Number},
		{"complemento", &f.Complement},
		{"bairro", &f.District},
		{"cidade", &f.City},
		{"estado", &f.State},
		{"cep", &f.PostalCode},
		{ColumnCPF, &f.CPF},
		{"rg", &f.SecondaryID},
		{"convenio", &f.Insurer},
		{"plano", &f.Plan},
		{"indicacao", &f.Referral},
	}
}

// TextColumns returns the names of every free-text column, in store order.
func TextColumns() []string {
	var f PatientForm
	fields := f.textFields()
	cols := make([]string, len(fields))
	for i, fd := range fields {
		cols[i] = fd.column
	}
	return cols
}

// Get returns the text value of column.
func (f *PatientForm) Get(column string) (string, bool) {
	if column == ColumnSex {
		return string(f.Sex), true
	}
	for _, fd := range f.textFields() {
		if fd.column == column {
			return *fd.value, true
		}
	}
	return "", false
}

// Set assigns a text value to column. It reports false for unknown columns
// and for specialties, which is not a text column.
func (f *PatientForm) Set(column, value string) bool {
	if column == ColumnSex {
		f.Sex = Sex(value)
		return true
	}
	for _, fd := range f.textFields() {
		if fd.column == column {
			*fd.value = value
			return true
		}
	}
	return false
}

// Columns returns every field of f keyed by column, as sent on insert.
func (f PatientForm) Columns() map[string]any {
	cols := make(map[string]any, 24)
	for _, fd := range f.textFields() {
		cols[fd.column] = *fd.value
	}
	cols[ColumnSex] = string(f.Sex)
	specialties := f.Specialties
	if specialties == nil {
		specialties = []string{}
	}
	cols[ColumnSpecialties] = specialties
	return cols
}

// Apply copies the supplied columns onto f, ignoring unknown ones.
func (f *PatientForm) Apply(cols map[string]any) {
	for col, v := range cols {
		switch val := v.(type) {
		case string:
			f.Set(col, val)
		case Sex:
			f.Sex = val
		case []string:
			if col == ColumnSpecialties {
				f.Specialties = append([]string{}, val...)
			}
		}
	}
	f.Normalize()
}
