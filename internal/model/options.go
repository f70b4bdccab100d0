package model

// Specialties offered by the practice.
var Specialties = []string{
	"Ortodontia",
	"Endodontia",
	"Periodontia",
	"Implantodontia",
	"Prótese Dentária",
	"Cirurgia Oral",
	"Odontopediatria",
	"Dentística",
	"Radiologia Oral",
}

var MaritalStatuses = []string{
	"Solteiro(a)",
	"Casado(a)",
	"Divorciado(a)",
	"Viúvo(a)",
	"Separado(a)",
	"União Estável",
}

// States holds the Brazilian federative unit codes.
var States = []string{
	"AC", "AL", "AP", "AM", "BA", "CE", "DF", "ES", "GO", "MA",
	"MT", "MS", "MG", "PA", "PB", "PR", "PE", "PI", "RJ", "RN",
	"RS", "RO", "RR", "SC", "SP", "SE", "TO",
}

// Options groups the selectable values shown next to the form.
type Options struct {
	Sexes           []Sex    `json:"sexos"`
	Specialties     []string `json:"especialidades"`
	MaritalStatuses []string `json:"estados_civis"`
	States          []string `json:"estados"`
}

func DefaultOptions() Options {
	return Options{
		Sexes:           []Sex{SexMale, SexFemale, SexOther},
		Specialties:     Specialties,
		MaritalStatuses: MaritalStatuses,
		States:          States,
	}
}
