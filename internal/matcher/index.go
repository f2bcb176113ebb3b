package matcher

import (
	"slices"

	"github.com/aanand-mishra/students-form/internal/types"
)

// Index maps a normalized uid to the positions of every row carrying it,
// in scan order. Build it once per load when many lookups run against the
// same dataset.
type Index struct {
	ds   types.Dataset
	rows map[string][]int
}

// NewIndex builds an Index over ds.
func NewIndex(ds types.Dataset) *Index {
	rows := make(map[string][]int, len(ds.Records))
	for i, rec := range ds.Records {
		key := NormalizeIdentifier(rec.UID)
		rows[key] = append(rows[key], i)
	}
	return &Index{ds: ds, rows: rows}
}

// Lookup answers exactly like Match on the indexed dataset.
func (x *Index) Lookup(identifier, date string) (int, types.Record, error) {
	dob, err := NormalizeDate(date)
	if err != nil {
		return -1, types.Record{}, err
	}
	for _, i := range x.rows[NormalizeIdentifier(identifier)] {
		if rec := x.ds.Records[i]; rec.DOB.String() == dob {
			return i, rec, nil
		}
	}
	return -1, types.Record{}, ErrNotFound
}

// Duplicates returns, in scan order, the normalized uids that appear on more
// than one row. Only the first such row can ever be matched.
func (x *Index) Duplicates() []string {
	var dups []string
	for _, rec := range x.ds.Records {
		key := NormalizeIdentifier(rec.UID)
		if len(x.rows[key]) > 1 && !slices.Contains(dups, key) {
			dups = append(dups, key)
		}
	}
	return dups
}
