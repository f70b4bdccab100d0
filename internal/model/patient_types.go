package model

import (
	"strings"

	"github.com/jwalitptl/patient-records/pkg/errors"
	pkgvalidator "github.com/jwalitptl/patient-records/pkg/validator"
)

// PatientUpdate carries a partial set of fields; nil means "keep the stored
// value".
type PatientUpdate struct {
	LegacyCode   *string   `json:"registro_antigo,omitempty"`
	FullName     *string   `json:"nome_completo,omitempty"`
	Notes        *string   `json:"observacoes,omitempty"`
	Sex          *Sex      `json:"sexo,omitempty"`
	Dentist      *string   `json:"cirurgiao_dentista,omitempty"`
	BirthDate    *string   `json:"data_nascimento,omitempty"`
	MaritalState *string   `json:"estado_civil,omitempty"`
	HomePhone    *string   `json:"telefone_residencial,omitempty"`
	MobilePhone  *string   `json:"celular,omitempty"`
	WorkPhone    *string   `json:"telefone_comercial,omitempty"`
	Email        *string   `json:"email,omitempty"`
	Street       *string   `json:"endereco,omitempty"`
	Number       *string   `json:"numero,omitempty"`
	Complement   *string   `json:"complemento,omitempty"`
	District     *string   `json:"bairro,omitempty"`
	City         *string   `json:"cidade,omitempty"`
	State        *string   `json:"estado,omitempty"`
	PostalCode   *string   `json:"cep,omitempty"`
	CPF          *string   `json:"cpf,omitempty"`
	SecondaryID  *string   `json:"rg,omitempty"`
	Insurer      *string   `json:"convenio,omitempty"`
	Plan         *string   `json:"plano,omitempty"`
	Specialties  *[]string `json:"especialidades,omitempty"`
	Referral     *string   `json:"indicacao,omitempty"`
}

// UpdateFromForm supplies every field of f.
func UpdateFromForm(f PatientForm) PatientUpdate {
	f.Normalize()
	sex := f.Sex
	specialties := append([]string{}, f.Specialties...)
	return PatientUpdate{
		LegacyCode:   &f.LegacyCode,
		FullName:     &f.FullName,
		Notes:        &f.Notes,
		Sex:          &sex,
		Dentist:      &f.Dentist,
		BirthDate:    &f.BirthDate,
		MaritalState: &f.MaritalState,
		HomePhone:    &f.HomePhone,
		MobilePhone:  &f.MobilePhone,
		WorkPhone:    &f.WorkPhone,
		Email:        &f.Email,
		Street:       &f.Street,
		Number:       &f.Number,
		Complement:   &f.Complement,
		District:     &f.District,
		City:         &f.City,
		State:        &f.State,
		PostalCode:   &f.PostalCode,
		CPF:          &f.CPF,
		SecondaryID:  &f.SecondaryID,
		Insurer:      &f.Insurer,
		Plan:         &f.Plan,
		Specialties:  &specialties,
		Referral:     &f.Referral,
	}
}

func (u PatientUpdate) text() []struct {
	column string
	value  *string
} {
	return []struct {
		column string
		value  *string
	}{
		{"registro_antigo", u.LegacyCode},
		{ColumnFullName, u.FullName},
		{"observacoes", u.Notes},
		{"cirurgiao_dentista", u.Dentist},
		{"data_nascimento", u.BirthDate},
		{"estado_civil", u.MaritalState},
		{"telefone_residencial", u.HomePhone},
		{ColumnMobile, u.MobilePhone},
		{"telefone_comercial", u.WorkPhone},
		{ColumnEmail, u.Email},
		{"endereco", u.Street},
		{"numero", u.Number},
		{"complemento", u.Complement},
		{"bairro", u.District},
		{"cidade", u.City},
		{"estado", u.State},
		{"cep", u.PostalCode},
		{ColumnCPF, u.CPF},
		{"rg", u.SecondaryID},
		{"convenio", u.Insurer},
		{"plano", u.Plan},
		{"indicacao", u.Referral},
	}
}

// Columns returns only the supplied fields keyed by column.
func (u PatientUpdate) Columns() map[string]any {
	cols := make(map[string]any)
	for _, fd := range u.text() {
		if fd.value != nil {
			cols[fd.column] = *fd.value
		}
	}
	if u.Sex != nil {
		cols[ColumnSex] = string(*u.Sex)
	}
	if u.Specialties != nil {
		specialties := *u.Specialties
		if specialties == nil {
			specialties = []string{}
		}
		cols[ColumnSpecialties] = specialties
	}
	return cols
}

// Empty reports whether no field is supplied.
func (u PatientUpdate) Empty() bool {
	return len(u.Columns()) == 0
}

// Validate checks only the supplied fields, with the same rules as the form.
func (u PatientUpdate) Validate() error {
	fields := errors.FieldErrors{}

	if u.FullName != nil && strings.TrimSpace(*u.FullName) == "" {
		fields[ColumnFullName] = fieldMessages["notblank"]
	}
	if u.CPF != nil && *u.CPF != "" && !pkgvalidator.CPF(*u.CPF) {
		fields[ColumnCPF] = fieldMessages["cpf"]
	}
	if u.Email != nil && *u.Email != "" && !pkgvalidator.Email(*u.Email) {
		fields[ColumnEmail] = fieldMessages["contact_email"]
	}
	if u.BirthDate != nil && *u.BirthDate != "" {
		if err := pkgvalidator.Engine().Var(*u.BirthDate, "datetime=2006-01-02"); err != nil {
			fields["data_nascimento"] = fieldMessages["datetime"]
		}
	}
	if u.Sex != nil && !u.Sex.Valid() {
		fields[ColumnSex] = "invalid sex"
	}

	if len(fields) > 0 {
		return errors.Validation(fields)
	}
	return nil
}
