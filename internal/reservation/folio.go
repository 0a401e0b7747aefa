package reservation

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

var (
	folioPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)
	folioGroup   = big.NewInt(10000)
)

// NewFolio returns a booking reference made of two independent four digit
// groups, e.g. "0427-9316".  Uniqueness is enforced by the ledger; callers
// regenerate on collision.
func NewFolio() (string, error) {
	a, err := rand.Int(rand.Reader, folioGroup)
	if err != nil {
		return "", err
	}
	b, err := rand.Int(rand.Reader, folioGroup)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d-%04d", a.Int64(), b.Int64()), nil
}

// ValidFolio reports whether s has the XXXX-XXXX shape.
func ValidFolio(s string) bool { return folioPattern.MatchString(s) }
