package patient

import "fmt"

// CPF is the Brazilian individual taxpayer number: 11 digits where the last
// two are check digits derived from the first nine via weighted modulo-11.
// A CPF is only ever constructed through NewCPF, so holding one means the
// number is well-formed.
type CPF struct {
	digits string
}

// NewCPF normalizes raw input by stripping punctuation and validates length,
// the all-same-digit blacklist, and both check digits.
func NewCPF(raw string) (CPF, error) {
	clean := make([]byte, 0, 11)
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			clean = append(clean, c)
		}
	}

	if len(clean) != 11 {
		return CPF{}, NewValidationError("cpf", fmt.Sprintf("must contain exactly 11 digits, got %d", len(clean)))
	}

	allSame := true
	for i := 1; i < 11; i++ {
		if clean[i] != clean[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return CPF{}, NewValidationError("cpf", "repeated-digit sequences are not valid")
	}

	if checkDigit(clean[:9]) != int(clean[9]-'0') || checkDigit(clean[:10]) != int(clean[10]-'0') {
		return CPF{}, NewValidationError("cpf", "check digits do not match")
	}

	return CPF{digits: string(clean)}, nil
}

// checkDigit computes one CPF check digit over the given prefix. Weights
// descend from len(prefix)+1 down to 2; remainder below 2 yields 0, otherwise
// 11 minus the remainder.
func checkDigit(prefix []byte) int {
	weight := len(prefix) + 1
	sum := 0
	for _, c := range prefix {
		sum += int(c-'0') * weight
		weight--
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}

// Value returns the canonical punctuated form, e.g. 123.456.789-09.
func (c CPF) Value() string {
	if c.digits == "" {
		return ""
	}
	return c.digits[:3] + "." + c.digits[3:6] + "." + c.digits[6:9] + "-" + c.digits[9:]
}

// Clean returns the raw 11-digit form.
func (c CPF) Clean() string {
	return c.digits
}

// Equals compares clean values, so formatting differences never matter.
func (c CPF) Equals(other CPF) bool {
	return c.digits == other.digits
}

func (c CPF) String() string {
	return c.Value()
}
