// Package admin contains the read-only handlers behind the admin password.
// Every request loads the backing file again, so viewing the dataset is
// also how an admin refreshes it.
package admin

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/session"
	"github.com/aanand-mishra/students-form/internal/storage/sheet"
	"github.com/aanand-mishra/students-form/internal/types"
	"github.com/aanand-mishra/students-form/internal/utils/response"
)

const (
	defaultAuditLimit = 100
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// RecordsResponse is the body of GET /api/admin/records.
type RecordsResponse struct {
	Count    int            `json:"count"`
	LoadedAt time.Time      `json:"loaded_at"`
	Columns  []string       `json:"columns"`
	Records  []types.Record `json:"records"`
}

// Records handles GET /api/admin/records.
func Records(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := svc.Dataset(r.Context())
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, RecordsResponse{
			Count:    ds.Len(),
			LoadedAt: time.Now().UTC(),
			Columns:  ds.Header(),
			Records:  ds.Records,
		})
	}
}

// Export handles GET /api/admin/records/export and streams the current
// dataset as a workbook.
func Export(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := svc.Dataset(r.Context())
		if err != nil {
			response.Error(w, err)
			return
		}
		data, err := sheet.Encode(ds)
		if err != nil {
			response.Error(w, apperr.Wrap(err, apperr.CodeInternal, "could not build workbook"))
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "students-"+time.Now().UTC().Format("20060102-150405")+".xlsx"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// Audit handles GET /api/admin/audit?limit=N.
func Audit(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultAuditLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				response.Error(w, apperr.New(apperr.CodeBadRequest, "limit must be a non-negative integer"))
				return
			}
			limit = n
		}

		entries, err := svc.AuditLog(r.Context(), limit)
		if err != nil {
			response.Error(w, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, entries)
	}
}
