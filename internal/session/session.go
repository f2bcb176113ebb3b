// Package session owns the login flow and the edit flow of one student.
//
// A Session moves through a fixed set of states:
//
//	Unauthenticated → UserAuthenticated → RecordMatched → Updated
//	                                                    ↘ LoggedOut
//
// Updated may be entered again (further edits) and left for LoggedOut.
// Every other move is rejected with an invalid_transition error.
package session

import (
	"fmt"
	"sync"

	"github.com/aanand-mishra/students-form/internal/apperr"
	"github.com/aanand-mishra/students-form/internal/types"
)

// State is the position of a Session in its lifecycle.
type State int

const (
	Unauthenticated State = iota
	UserAuthenticated
	RecordMatched
	Updated
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case UserAuthenticated:
		return "user_authenticated"
	case RecordMatched:
		return "record_matched"
	case Updated:
		return "updated"
	case LoggedOut:
		return "logged_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session is the server-side state of one logged-in student. All access
// goes through its methods; mu also serializes whole edit operations so
// two requests carrying the same cookie cannot interleave.
type Session struct {
	mu sync.Mutex

	token  string
	state  State
	index  int
	record types.Record
}

func newSession() *Session {
	return &Session{state: Unauthenticated, index: -1}
}

// View is a consistent copy of a Session's public data.
type View struct {
	Token  string       `json:"-"`
	State  string       `json:"state"`
	Index  int          `json:"index"`
	Record types.Record `json:"record"`
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{Token: s.token, State: s.state.String(), Index: s.index, Record: s.record}
}

// Token returns the opaque id the client presents.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// The transition methods below expect s.mu to be held by the caller.

func (s *Session) authenticate() error {
	if s.state != Unauthenticated {
		return s.invalid(UserAuthenticated)
	}
	s.state = UserAuthenticated
	return nil
}

func (s *Session) match(index int, rec types.Record) error {
	if s.state != UserAuthenticated {
		return s.invalid(RecordMatched)
	}
	s.state, s.index, s.record = RecordMatched, index, rec
	return nil
}

func (s *Session) canEdit() bool {
	return s.state == RecordMatched || s.state == Updated
}

func (s *Session) markUpdated(rec types.Record) error {
	if !s.canEdit() {
		return s.invalid(Updated)
	}
	s.state, s.record = Updated, rec
	return nil
}

func (s *Session) logout() error {
	if s.state == LoggedOut {
		return s.invalid(LoggedOut)
	}
	s.state, s.index, s.record = LoggedOut, -1, types.Record{}
	return nil
}

func (s *Session) invalid(to State) error {
	return apperr.New(apperr.CodeInvalidTransition,
		fmt.Sprintf("cannot move session from %s to %s", s.state, to))
}
