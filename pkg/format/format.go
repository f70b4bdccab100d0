// Package format re-derives masked display strings from raw keystrokes.
// Every formatter discards previously inserted punctuation, so applying one
// twice yields the same result as applying it once.
package format

import "strings"

// Digit capacity of each mask.
const (
	CPFDigits   = 11
	CEPDigits   = 8
	PhoneDigits = 11
)

// Digits returns s with every non-ASCII-digit rune removed.
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

func truncated(s string, n int) string {
	d := Digits(s)
	if len(d) > n {
		return d[:n]
	}
	return d
}

// CPF masks up to 11 digits as NNN.NNN.NNN-NN, progressively.
func CPF(s string) string {
	return mask(truncated(s, CPFDigits), "###.###.###-##")
}

// CEP masks up to 8 digits as NNNNN-NNN.
func CEP(s string) string {
	return mask(truncated(s, CEPDigits), "#####-###")
}

// Phone masks up to 11 digits as (NN) NNNNN-NNNN for mobiles and
// (NN) NNNN-NNNN for landlines.
func Phone(s string) string {
	d := truncated(s, PhoneDigits)
	if len(d) > 10 {
		return mask(d, "(##) #####-####")
	}
	return mask(d, "(##) ####-####")
}

// mask writes digits into the # slots of pattern. Literal characters are
// emitted only when a digit follows them, so partial input yields a partial
// mask; the opening "(" of the phone pattern is emitted as soon as any digit
// is present.
func mask(digits, pattern string) string {
	if digits == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(pattern))

	i := 0
	var pending strings.Builder
	for _, p := range pattern {
		if i == len(digits) {
			break
		}
		if p != '#' {
			pending.WriteRune(p)
			continue
		}
		b.WriteString(pending.String())
		pending.Reset()
		b.WriteByte(digits[i])
		i++
	}
	return b.String()
}
