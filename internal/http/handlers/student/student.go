// Package student contains the HTTP handlers a student uses: log in, read
// the matched record, submit the edit form, log out.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ────────────────────────────────────────────────────────────
// Every handler is built by a factory that receives its dependencies once,
// at startup, and returns the func(http.ResponseWriter, *http.Request) the
// router needs:
//
//	router.HandleFunc("POST /api/login", student.Login(svc))
//	router.HandleFunc("PUT /api/me", student.Update(svc, log))
//	//                                ^^^^^^^^^^^^^^^^^^^^^^^^
//	//               called ONCE when the route is registered;
//	//               the returned closure runs on EVERY request.
//
// SESSIONS:
// The session travels in an HttpOnly cookie holding an opaque token. All
// state (which row was matched, whether it was already edited) stays on
// the server inside session.Service; the cookie is only a key into it.
package student

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/session"
	"github.com/aanand-mishra/students-form/internal/types"
	"github.com/aanand-mishra/students-form/internal/utils/requestid"
	"github.com/aanand-mishra/students-form/internal/utils/response"
	"github.com/aanand-mishra/students-form/internal/validation"
)

// CookieName is the cookie holding the session token.
const CookieName = "session_id"

var validate = validation.New()

// LoginRequest is the body of POST /api/login. All three fields are
// required; the dob may be written in any of the accepted date forms.
type LoginRequest struct {
	UID      string `json:"uid"      validate:"required"`
	DOB      string `json:"dob"      validate:"required"`
	Password string `json:"password" validate:"required"`
}

// MeResponse describes the logged-in student. Form carries the editable
// fields ready to prefill the edit form, so the client never has to map
// Record back onto UpdateFields itself.
type MeResponse struct {
	State  string             `json:"state"`
	Index  int                `json:"index"`
	Record types.Record       `json:"record"`
	Form   types.UpdateFields `json:"form"`
}

func meResponse(v session.View) MeResponse {
	return MeResponse{State: v.State, Index: v.Index, Record: v.Record, Form: types.FieldsOf(v.Record)}
}

// ─────────────────────────────────────────────────────────────────────────────
// Login handles POST /api/login
//
// Request body (JSON):
//
//	{ "uid": "S001", "dob": "2005-04-01", "password": "..." }
//
// Success response (200 OK), plus a session_id cookie:
//
//	{ "state": "record_matched", "index": 0, "record": {...}, "form": {...} }
//
// Error responses:
//
//	400 Bad Request  empty body, malformed JSON, missing field, unreadable dob
//	401 Unauthorized wrong password, unknown id or wrong dob (one message for all)
//	502 Bad Gateway  the backing file could not be loaded
//
// ─────────────────────────────────────────────────────────────────────────────
func Login(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// ── Step 1: Decode and validate the body ──────────────────────
		var req LoginRequest
		if !decode(w, r, &req) {
			return
		}

		// ── Step 2: Check the credentials against a fresh load ────────
		// The service never says which of the three inputs was wrong.
		sess, err := svc.Login(r.Context(), req.UID, req.DOB, req.Password)
		if err != nil {
			response.Error(w, err)
			return
		}

		// ── Step 3: Hand the session token to the browser ─────────────
		// HttpOnly keeps it away from page scripts; Secure follows the
		// connection so plain-HTTP local runs still work.
		view := sess.View()
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    view.Token,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		response.WriteJSON(w, http.StatusOK, meResponse(view))
	}
}

// Me handles GET /api/me and returns the record matched at login, or as it
// was last saved. 401 without a live session.
func Me(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := current(w, r, svc)
		if !ok {
			return
		}
		response.WriteJSON(w, http.StatusOK, meResponse(sess.View()))
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/me
//
//	{ "name": "...", "department": "...", "gender": "Female", "dob": "2005-04-01",
//	  "email": "...", "mobile": "9876543210", "aadhar": "123412341234",
//	  "fathersname": "...", "mothersname": "..." }
//
// All nine fields are written together or not at all. The file is loaded
// again right before the save, so edits other students made since this
// login are kept.
//
// Success response (200 OK): the same shape as GET /api/me, state "updated".
//
// Error responses:
//
//	400 Bad Request  a field is invalid (the message names it)
//	401 Unauthorized no session
//	409 Conflict     the row moved, or the file changed underneath the save
//	502 Bad Gateway  the backing store could not be read or written
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(svc *session.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// ── Step 1: Resolve the session before reading anything else ──
		sess, ok := current(w, r, svc)
		if !ok {
			return
		}

		// ── Step 2: Decode the form ───────────────────────────────────
		// Validation happens inside the service, on the same path for
		// every caller, so no validate.Struct here.
		var fields types.UpdateFields
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			badBody(w, err)
			return
		}

		// ── Step 3: Validate, reload, modify, save ────────────────────
		if _, err := svc.UpdateRecord(r.Context(), sess, fields); err != nil {
			log.InfoContext(r.Context(), "update rejected",
				slog.String("request_id", requestid.From(r.Context())),
				slog.String("code", string(apperr.CodeOf(err))))
			response.Error(w, err)
			return
		}

		// ── Step 4: Return the saved record ───────────────────────────
		response.WriteJSON(w, http.StatusOK, meResponse(sess.View()))
	}
}

// Logout handles POST /api/logout. It succeeds with or without a live
// session and always expires the cookie, so a stale browser tab cannot get
// stuck half logged in.
func Logout(svc *session.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil {
			if err := svc.Logout(r.Context(), c.Value); err != nil {
				response.Error(w, err)
				return
			}
		}
		http.SetCookie(w, &http.Cookie{Name: CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
		response.WriteJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	}
}

// current resolves the session cookie, answering 401 itself when there is
// no live session.
func current(w http.ResponseWriter, r *http.Request, svc *session.Service) (*session.Session, bool) {
	c, err := r.Cookie(CookieName)
	if err == nil {
		if sess, ok := svc.Sessions().Get(c.Value); ok {
			return sess, true
		}
	}
	response.Error(w, apperr.New(apperr.CodeUnauthorized, "Please log in first."))
	return nil, false
}

// decode reads a JSON body into v and checks its validate tags.
//
// It writes the 400 response itself and reports false when the body is
// unusable; the caller just returns.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badBody(w, err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			response.WriteJSON(w, http.StatusBadRequest, response.ValidationError(verrs))
			return false
		}
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return false
	}
	return true
}

// badBody answers 400 for a body that is not JSON at all. io.EOF from the
// decoder means the body was completely empty.
func badBody(w http.ResponseWriter, err error) {
	if errors.Is(err, io.EOF) {
		err = errors.New("request body is empty")
	}
	response.Error(w, apperr.Wrap(err, apperr.CodeBadRequest, err.Error()))
}
