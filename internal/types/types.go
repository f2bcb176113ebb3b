// Package types holds all shared data structures (models) used across
// the application. Keeping them in one place prevents import cycles:
// handlers, storage, matcher and session can all import types without
// depending on each other.
package types

import "time"

// Column names of the backing spreadsheet. Access is always by name, the
// order in which they appear in a file is not guaranteed.
const (
	ColUID         = "uid"
	ColName        = "name"
	ColDepartment  = "department"
	ColGender      = "gender"
	ColDOB         = "dob"
	ColEmail       = "email"
	ColMobile      = "mobile"
	ColAadhar      = "aadhar"
	ColFathersName = "fathersname"
	ColMothersName = "mothersname"
)

// Columns is the canonical header, used when a Dataset carries no header of
// its own (for example one built in memory).
var Columns = []string{
	ColUID, ColName, ColDepartment, ColGender, ColDOB,
	ColEmail, ColMobile, ColAadhar, ColFathersName, ColMothersName,
}

// Record represents one student row of the backing spreadsheet.
//
// Extra holds the cells of any column outside the fixed header so that a
// load followed by a save never drops data somebody else put in the file.
type Record struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Department  string `json:"department"`
	Gender      string `json:"gender"`
	DOB         Date   `json:"dob"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile"`
	Aadhar      string `json:"aadhar"`
	FathersName string `json:"fathersname"`
	MothersName string `json:"mothersname"`

	// RawDOB is the dob cell exactly as found in the file when it could not
	// be read as a date. DOB is zero in that case; saving writes RawDOB back
	// so one student's edit never blanks another student's dob.
	RawDOB string `json:"dob_raw,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// Get returns the cell value for the named column. For dob that is the
// YYYY-MM-DD form, or the untouched cell text when it was never a date.
func (r Record) Get(col string) string {
	switch col {
	case ColUID:
		return r.UID
	case ColName:
		return r.Name
	case ColDepartment:
		return r.Department
	case ColGender:
		return r.Gender
	case ColDOB:
		if r.DOB.IsZero() {
			return r.RawDOB
		}
		return r.DOB.String()
	case ColEmail:
		return r.Email
	case ColMobile:
		return r.Mobile
	case ColAadhar:
		return r.Aadhar
	case ColFathersName:
		return r.FathersName
	case ColMothersName:
		return r.MothersName
	default:
		return r.Extra[col]
	}
}

// Set stores a raw cell value under the named column. The dob column is
// not handled here because it needs date parsing; callers set DOB directly.
func (r *Record) Set(col, value string) {
	switch col {
	case ColUID:
		r.UID = value
	case ColName:
		r.Name = value
	case ColDepartment:
		r.Department = value
	case ColGender:
		r.Gender = value
	case ColEmail:
		r.Email = value
	case ColMobile:
		r.Mobile = value
	case ColAadhar:
		r.Aadhar = value
	case ColFathersName:
		r.FathersName = value
	case ColMothersName:
		r.MothersName = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[col] = value
	}
}

// Dataset is the full, ordered content of the backing file.
//
// An empty Dataset returned together with an error means "load failed",
// never "zero records".
type Dataset struct {
	// Columns is the header row in file order. Save writes it back in the
	// same order.
	Columns []string `json:"columns"`
	// Records are in file row order. The position of a Record is its index.
	Records []Record `json:"records"`
}

// Len reports the number of records.
func (d Dataset) Len() int { return len(d.Records) }

// Empty reports whether the dataset holds no records.
func (d Dataset) Empty() bool { return len(d.Records) == 0 }

// UnreadableDOB returns the uids of rows whose dob cell is not a date.
// Such rows can never log in.
func (d Dataset) UnreadableDOB() []string {
	var uids []string
	for _, r := range d.Records {
		if r.RawDOB != "" {
			uids = append(uids, r.UID)
		}
	}
	return uids
}

// Header returns the columns to write, falling back to the canonical order.
func (d Dataset) Header() []string {
	if len(d.Columns) == 0 {
		return Columns
	}
	return d.Columns
}

// UpdateFields is the payload of the edit form. Every field is written back
// to the matched row in one go, or nothing is written at all.
//
// validate:"..." tags are checked by go-playground/validator. The mobile and
// aadhar tags are custom ones registered by the validation package.
type UpdateFields struct {
	Name        string `json:"name"`
	Department  string `json:"department"`
	Gender      string `json:"gender"      validate:"omitempty,oneof=Male Female"`
	DOB         string `json:"dob"         validate:"required,date"`
	Email       string `json:"email"`
	Mobile      string `json:"mobile"      validate:"mobile"`
	Aadhar      string `json:"aadhar"      validate:"aadhar"`
	FathersName string `json:"fathersname"`
	MothersName string `json:"mothersname"`
}

// FieldsOf returns the editable fields of r, used to prefill the form.
func FieldsOf(r Record) UpdateFields {
	return UpdateFields{
		Name:        r.Name,
		Department:  r.Department,
		Gender:      r.Gender,
		DOB:         r.DOB.String(),
		Email:       r.Email,
		Mobile:      r.Mobile,
		Aadhar:      r.Aadhar,
		FathersName: r.FathersName,
		MothersName: r.MothersName,
	}
}

// AuditEntry is one persisted update as recorded by the audit journal.
type AuditEntry struct {
	ID        int64     `json:"id"`
	UID       string    `json:"uid"`
	RowIndex  int       `json:"row_index"`
	Fields    []string  `json:"fields"`
	RequestID string    `json:"request_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
