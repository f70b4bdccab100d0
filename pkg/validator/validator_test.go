package validator

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPF(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"529.982.247-25", true},
		{"52998224725", true},
		{"111.444.777-35", true},
		{"111.111.111-11", false},
		{"123.456.789-00", false},
		{"529.982.247-24", false},
		{"529.982.247", false},
		{"", false},
		{"abc", false},
		{"529.982.247-251", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CPF(tt.in))
		})
	}
}

func TestCPFRejectsRepeatedDigits(t *testing.T) {
	for d := '0'; d <= '9'; d++ {
		s := strings.Repeat(string(d), 11)
		assert.False(t, CPF(s), s)
	}
}

func TestCPFSingleDigitFlip(t *testing.T) {
	valid := "52998224725"
	for i := 0; i < len(valid); i++ {
		b := []byte(valid)
		b[i] = '0' + (b[i]-'0'+1)%10
		assert.False(t, CPF(string(b)), "flipped position %d: %s", i, b)
	}
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("maria@clinica.com.br"))
	assert.True(t, Email("a.b+c@d.io"))

	assert.False(t, Email(""))
	assert.False(t, Email("maria"))
	assert.False(t, Email("maria@clinica"))
	assert.False(t, Email("maria@@clinica.com"))
	assert.False(t, Email("ma ria@clinica.com"))
	assert.False(t, Email("maria@cli nica.com"))
	assert.False(t, Email("@clinica.com"))
}

func TestEngineTags(t *testing.T) {
	type form struct {
		Name  string `json:"nome_completo" validate:"notblank"`
		CPF   string `json:"cpf" validate:"omitempty,cpf"`
		Email string `json:"email" validate:"omitempty,contact_email"`
	}

	require.NoError(t, Engine().Struct(form{Name: "Maria", CPF: "529.982.247-25"}))

	err := Engine().Struct(form{Name: "  ", CPF: "123.456.789-00", Email: "x"})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	fields := map[string]string{}
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	assert.Equal(t, map[string]string{
		"nome_completo": "notblank",
		"cpf":           "cpf",
		"email":         "contact_email",
	}, fields)
}
