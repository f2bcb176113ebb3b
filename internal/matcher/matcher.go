// Package matcher finds the student row a login attempt refers to.
//
// Both sides of the comparison are normalized first: identifiers are
// trimmed and lower-cased, dates are reduced to YYYY-MM-DD whatever form
// they arrived in. The scan is linear and the first matching row wins, so a
// duplicated uid/dob pair can only ever reach the earlier row.
package matcher

import (
	"strings"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/types"
)

// ErrNotFound is returned when no row matches the submitted credentials.
var ErrNotFound = apperr.New(apperr.CodeNotFound, "no record matches the given id and date of birth")

// NormalizeIdentifier trims surrounding whitespace and lower-cases s.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeDate parses s in any accepted form and formats it as YYYY-MM-DD.
func NormalizeDate(s string) (string, error) {
	d, err := types.ParseDate(s)
	if err != nil {
		return "", apperr.Wrap(err, apperr.CodeValidation, "invalid date of birth")
	}
	return d.String(), nil
}

// Match returns the index and value of the first record whose uid and dob
// equal identifier and date after normalization.
func Match(ds types.Dataset, identifier, date string) (int, types.Record, error) {
	uid := NormalizeIdentifier(identifier)
	dob, err := NormalizeDate(date)
	if err != nil {
		return -1, types.Record{}, err
	}

	for i, rec := range ds.Records {
		if NormalizeIdentifier(rec.UID) == uid && rec.DOB.String() == dob {
			return i, rec, nil
		}
	}
	return -1, types.Record{}, ErrNotFound
}
