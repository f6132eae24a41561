// Package roomcode generates and normalizes XXXX-XXXX room codes.
package roomcode

import (
	crand "crypto/rand"
	"math/big"
	"math/rand"
	"regexp"
	"strings"
)

// Alphabet leaves out I, O, 0 and 1.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const Length = 8

var pattern = regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)

// Generate returns a new random code in display form.
func Generate() string {
	code := make([]byte, Length)
	for i := range code {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(Alphabet))))
		if err != nil {
			code[i] = Alphabet[rand.Intn(len(Alphabet))]
			continue
		}
		code[i] = Alphabet[n.Int64()]
	}
	return string(code[:4]) + "-" + string(code[4:])
}

// Normalize uppercases user input, drops spaces and dashes and re-inserts
// the dash when eight characters remain.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch r {
		case ' ', '\t', '\n', '\r', '-':
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if len(out) == Length {
		return out[:4] + "-" + out[4:]
	}
	return out
}

// Valid reports whether s is a normalized code.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
