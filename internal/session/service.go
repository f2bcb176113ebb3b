package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/matcher"
	"github.com/aanand-mishra/students-form/internal/metrics"
	"github.com/aanand-mishra/students-form/internal/storage"
	"github.com/aanand-mishra/students-form/internal/types"
	"github.com/aanand-mishra/students-form/internal/utils/requestid"
	"github.com/aanand-mishra/students-form/internal/validation"
)

// LoginFailedMessage is shown for a wrong password, an unknown id and a
// wrong date of birth alike, so a caller cannot tell which one it was.
const LoginFailedMessage = "Login failed! Incorrect ID or Date of Birth."

// Options wires a Service.
type Options struct {
	Store         storage.Storage
	Audit         storage.AuditLog // optional
	Sessions      *Manager
	Metrics       *metrics.Metrics
	AppPassword   string
	AdminPassword string
	Logger        *slog.Logger
}

// Service implements the session-facing API: Login, UpdateRecord, Logout,
// plus the admin read paths.
type Service struct {
	store         storage.Storage
	audit         storage.AuditLog
	sessions      *Manager
	metrics       *metrics.Metrics
	appPassword   string
	adminPassword string
	log           *slog.Logger
}

// NewService builds a Service from opts. The session manager reports its
// size to the active sessions gauge from then on.
func NewService(opts Options) *Service {
	if opts.Sessions != nil && opts.Metrics != nil {
		opts.Sessions.observe(opts.Metrics.ActiveSessions)
	}
	return &Service{
		store:         opts.Store,
		audit:         opts.Audit,
		sessions:      opts.Sessions,
		metrics:       opts.Metrics,
		appPassword:   opts.AppPassword,
		adminPassword: opts.AdminPassword,
		log:           opts.Logger,
	}
}

// Sessions exposes the session manager to the HTTP layer.
func (s *Service) Sessions() *Manager { return s.sessions }

// Login checks the shared password, loads the dataset and looks for the
// row matching identifier and date. On success the returned session is
// already stored in the manager.
func (s *Service) Login(ctx context.Context, identifier, date, password string) (*Session, error) {
	sess := newSession()
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !secretEqual(password, s.appPassword) {
		s.rejectLogin(ctx, "password mismatch")
		return nil, apperr.New(apperr.CodeAuthFailed, LoginFailedMessage)
	}
	if err := sess.authenticate(); err != nil {
		return nil, err
	}

	ds, err := s.store.Load(ctx)
	if err != nil {
		s.metrics.LoginAttempts.WithLabelValues(metrics.LoginLoadFailed).Inc()
		return nil, err
	}

	index, rec, err := matcher.Match(ds, identifier, date)
	if err != nil {
		if errors.Is(err, matcher.ErrNotFound) {
			s.rejectLogin(ctx, "no matching record")
			return nil, apperr.Wrap(err, apperr.CodeNotFound, LoginFailedMessage)
		}
		s.rejectLogin(ctx, err.Error())
		return nil, err
	}

	if err := sess.match(index, rec); err != nil {
		return nil, err
	}
	s.sessions.add(sess)
	s.metrics.LoginAttempts.WithLabelValues(metrics.LoginOK).Inc()

	s.log.InfoContext(ctx, "login successful",
		slog.String("request_id", requestid.From(ctx)),
		slog.Int("row", index))
	return sess, nil
}

func (s *Service) rejectLogin(ctx context.Context, reason string) {
	s.metrics.LoginAttempts.WithLabelValues(metrics.LoginRejected).Inc()
	s.log.InfoContext(ctx, "login rejected",
		slog.String("request_id", requestid.From(ctx)),
		slog.String("reason", reason))
}

// UpdateRecord validates fields, re-loads the dataset, overwrites the
// matched row and saves the whole dataset once. Nothing is saved when any
// field is invalid. The updated row is returned.
func (s *Service) UpdateRecord(ctx context.Context, sess *Session, fields types.UpdateFields) (types.Record, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.canEdit() {
		return types.Record{}, apperr.New(apperr.CodeUnauthorized, "Please log in first.")
	}
	if err := validation.Fields(fields); err != nil {
		return types.Record{}, err
	}

	// Load again right before saving to pick up edits made since login.
	ds, err := s.store.Load(ctx)
	if err != nil {
		return types.Record{}, err
	}

	index := sess.index
	if index >= ds.Len() || matcher.NormalizeIdentifier(ds.Records[index].UID) != matcher.NormalizeIdentifier(sess.record.UID) {
		s.log.WarnContext(ctx, "matched row moved since login",
			slog.String("request_id", requestid.From(ctx)),
			slog.Int("row", index),
			slog.Int("records", ds.Len()))
		return types.Record{}, apperr.New(apperr.CodeConflict,
			"Your record changed position in the file. Please log in again.")
	}

	updated, changed, err := Apply(ds.Records[index], fields)
	if err != nil {
		return types.Record{}, err
	}
	ds.Records[index] = updated

	if err := s.store.Save(ctx, ds); err != nil {
		return types.Record{}, err
	}

	if err := sess.markUpdated(updated); err != nil {
		return types.Record{}, err
	}
	s.metrics.Updates.Inc()
	s.journal(ctx, updated.UID, index, changed)

	s.log.InfoContext(ctx, "details updated successfully",
		slog.String("request_id", requestid.From(ctx)),
		slog.Int("row", index),
		slog.Any("fields", changed))
	return updated, nil
}

// Logout ends the session behind token. An unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	sess, ok := s.sessions.Get(token)
	if !ok {
		return nil
	}
	s.sessions.Remove(token)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := sess.logout(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "logged out", slog.String("request_id", requestid.From(ctx)))
	return nil
}

// CheckAdmin compares password with the admin password in constant time.
func (s *Service) CheckAdmin(password string) error {
	if !secretEqual(password, s.adminPassword) {
		return apperr.New(apperr.CodeUnauthorized, "admin password required")
	}
	return nil
}

// Dataset loads the current dataset for the admin view. Every call goes to
// the backing store, so viewing is refreshing.
func (s *Service) Dataset(ctx context.Context) (types.Dataset, error) {
	ds, err := s.store.Load(ctx)
	if err != nil {
		return types.Dataset{}, err
	}
	if dups := matcher.NewIndex(ds).Duplicates(); len(dups) > 0 {
		s.log.WarnContext(ctx, "dataset has duplicate uids; only the first row of each can log in",
			slog.Any("uids", dups))
	}
	return ds, nil
}

// AuditLog returns the latest journal entries, newest first.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]types.AuditEntry, error) {
	if s.audit == nil {
		return []types.AuditEntry{}, nil
	}
	entries, err := s.audit.List(ctx, limit)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "could not read audit log")
	}
	return entries, nil
}

func (s *Service) journal(ctx context.Context, uid string, index int, changed []string) {
	if s.audit == nil {
		return
	}
	_, err := s.audit.Append(ctx, types.AuditEntry{
		UID:       uid,
		RowIndex:  index,
		Fields:    changed,
		RequestID: requestid.From(ctx),
		CreatedAt: time.Now(),
	})
	if err != nil {
		s.log.ErrorContext(ctx, "error writing audit entry",
			slog.String("request_id", requestid.From(ctx)),
			slog.String("error", err.Error()))
	}
}

// Apply returns rec with every editable field replaced by fields, and the
// names of the columns whose value actually changed. uid and any extra
// columns are left alone.
func Apply(rec types.Record, fields types.UpdateFields) (types.Record, []string, error) {
	dob, err := types.ParseDate(fields.DOB)
	if err != nil {
		return types.Record{}, nil, apperr.Wrap(err, apperr.CodeValidation, "Invalid dob. Use the YYYY-MM-DD format.")
	}

	out := rec
	out.Name = fields.Name
	out.Department = fields.Department
	out.Gender = fields.Gender
	out.DOB, out.RawDOB = dob, ""
	out.Email = fields.Email
	out.Mobile = fields.Mobile
	out.Aadhar = fields.Aadhar
	out.FathersName = fields.FathersName
	out.MothersName = fields.MothersName

	var changed []string
	for _, col := range types.Columns {
		if rec.Get(col) != out.Get(col) {
			changed = append(changed, col)
		}
	}
	return out, changed, nil
}

// secretEqual compares in constant time. An unset secret never matches.
func secretEqual(given, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}
