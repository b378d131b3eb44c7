// Package ident derives the stable integer identifiers used as primary keys
// in the relational schema: one from an advisory's human-readable code and
// one from a package's NEVRA tuple. Both derivations are pure functions with
// no external state, so re-ingestion always reproduces the same ids.
package ident

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/daimoniac/erratadb/internal/errors"
	"github.com/daimoniac/erratadb/internal/types"
)

// categoryCodes maps an advisory code prefix to its category slot. Unknown
// prefixes take the reserved slot just past the table.
var categoryCodes = map[string]int{
	"RHSA": 0,
	"RHBA": 1,
	"RHEA": 2,
}

var categories = map[string]types.Category{
	"RHSA": types.CategorySecurity,
	"RHBA": types.CategoryBug,
	"RHEA": types.CategoryEnhancement,
}

const (
	yearWidth     = 4
	sequenceWidth = 5
)

// CategoryOf maps an advisory code's prefix to its category. Codes with an
// unrecognized prefix classify as "other".
func CategoryOf(code string) types.Category {
	prefix, _, ok := strings.Cut(code, "-")
	if !ok {
		return types.CategoryOther
	}
	if cat, ok := categories[prefix]; ok {
		return cat
	}
	return types.CategoryOther
}

// AdvisoryID derives the stable integer id for an advisory code of the form
// <PREFIX>-<year>:<sequence>, e.g. RHSA-2016:2872. The encoding concatenates
// a constant guard digit, the prefix's category slot, the 4-digit year and
// the zero-padded 5-digit sequence, so the result is injective over real
// advisory codes and numeric ordering follows category then chronology.
func AdvisoryID(code string) (int64, error) {
	prefix, serial, ok := strings.Cut(code, "-")
	if !ok {
		return 0, errors.NewMalformedIdentifierf(code, "missing %q separator", "-")
	}

	year, sequence, ok := strings.Cut(serial, ":")
	if !ok {
		return 0, errors.NewMalformedIdentifierf(code, "missing %q separator", ":")
	}

	if len(year) != yearWidth || !isDigits(year) {
		return 0, errors.NewMalformedIdentifierf(code, "year %q is not a 4-digit number", year)
	}
	if len(sequence) == 0 || len(sequence) > sequenceWidth || !isDigits(sequence) {
		return 0, errors.NewMalformedIdentifierf(code, "sequence %q is not a 1-5 digit number", sequence)
	}

	slot, ok := categoryCodes[prefix]
	if !ok {
		slot = len(categoryCodes)
	}

	var b strings.Builder
	b.WriteByte('1')
	b.WriteString(strconv.Itoa(slot))
	b.WriteString(year)
	b.WriteString(strings.Repeat("0", sequenceWidth-len(sequence)))
	b.WriteString(sequence)

	id, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		// Unreachable with the width checks above.
		return 0, errors.NewMalformedIdentifierf(code, "encoding overflow: %v", err)
	}
	return id, nil
}

// PackageID derives the stable integer id for a package's NEVRA tuple. The
// five fields are joined, hashed with SHA-256, and the first 8 hex digits of
// the digest are transliterated to a 16-digit decimal. Identical tuples
// always collide to the same id; distinct tuples collide only with the
// truncated digest's residual probability, an accepted tradeoff for a
// non-security-critical key.
func PackageID(name, epoch, version, release, arch string) int64 {
	joined := strings.Join([]string{name, epoch, version, release, arch}, " ")
	digest := sha256.Sum256([]byte(joined))
	hexDigest := hex.EncodeToString(digest[:])

	id, _ := strconv.ParseInt(hexToDecimal(hexDigest[:8]), 10, 64)
	return id
}

// hexToDecimal transliterates each hex digit to a fixed-width two-digit
// decimal: 0-9 map to 00-09 and a-f map to 10-15. The fixed width keeps the
// mapping injective over equal-length inputs.
func hexToDecimal(hexStr string) string {
	var b strings.Builder
	b.Grow(len(hexStr) * 2)
	for _, c := range []byte(hexStr) {
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte('0')
			b.WriteByte(c)
		case c >= 'a' && c <= 'f':
			b.WriteString(strconv.Itoa(int(c-'a') + 10))
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	for _, c := range []byte(s) {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}
