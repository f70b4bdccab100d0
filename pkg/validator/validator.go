package validator

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/patient-records/pkg/format"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CPF reports whether s holds a well-formed Brazilian CPF. Punctuation is
// ignored; malformed input simply fails.
func CPF(s string) bool {
	digits := format.Digits(s)
	if len(digits) != 11 {
		return false
	}
	if strings.Count(digits, digits[:1]) == 11 {
		return false
	}

	d := make([]int, 11)
	for i := range digits {
		d[i] = int(digits[i] - '0')
	}

	return checkDigit(d[:9], 10) == d[9] && checkDigit(d[:10], 11) == d[10]
}

// checkDigit computes a mod-11 check digit, weighting digits from weight down to 2.
func checkDigit(d []int, weight int) int {
	sum := 0
	for i, n := range d {
		sum += n * (weight - i)
	}
	rem := sum % 11
	if rem < 2 {
		return 0
	}
	return 11 - rem
}

// Email is a syntactic sanity check: one local@domain split, a dotted
// domain and no whitespace.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

var (
	once   sync.Once
	engine *validator.Validate
)

// Engine returns the shared struct validator with the patient rules registered.
func Engine() *validator.Validate {
	once.Do(func() {
		engine = validator.New(validator.WithRequiredStructEnabled())
		if err := Register(engine); err != nil {
			panic(err)
		}
	})
	return engine
}

// Register installs the cpf, contact_email and notblank tags and reports
// field names by their json tag.
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
		return CPF(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return Email(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		return err
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return nil
}
