package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

type AppErrSuite struct {
	suite.Suite
}

func TestAppErrSuite(t *testing.T) {
	suite.Run(t, new(AppErrSuite))
}

func (s *AppErrSuite) TestError() {
	s.Run("returns message when present", func() {
		s.Equal("no such student", New(CodeNotFound, "no such student").Error())
	})
	s.Run("falls back to code", func() {
		s.Equal("save_failed", New(CodeSaveFailed, "").Error())
	})
}

func (s *AppErrSuite) TestIs() {
	err := fmt.Errorf("login: %w", New(CodeNotFound, "row missing"))

	s.True(errors.Is(err, New(CodeNotFound, "")))
	s.False(errors.Is(err, New(CodeAuthFailed, "")))
}

func (s *AppErrSuite) TestWrap() {
	s.Run("keeps existing code", func() {
		inner := New(CodeConflict, "sha mismatch")
		err := Wrap(inner, CodeSaveFailed, "could not save")
		s.Equal(CodeConflict, CodeOf(err))
		s.Equal("could not save", err.Error())
		s.ErrorIs(err, inner)
	})

	s.Run("applies code to plain errors", func() {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeLoadFailed, "could not load")
		s.True(HasCode(err, CodeLoadFailed))
		s.ErrorIs(err, cause)
	})
}

func (s *AppErrSuite) TestCodeOf() {
	s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	s.Equal(CodeValidation, CodeOf(New(CodeValidation, "bad mobile")))
}

func (s *AppErrSuite) TestHTTPStatus() {
	s.Equal(http.StatusUnauthorized, HTTPStatus(CodeAuthFailed))
	s.Equal(http.StatusUnauthorized, HTTPStatus(CodeNotFound))
	s.Equal(http.StatusBadRequest, HTTPStatus(CodeValidation))
	s.Equal(http.StatusConflict, HTTPStatus(CodeConflict))
	s.Equal(http.StatusBadGateway, HTTPStatus(CodeSaveFailed))
	s.Equal(http.StatusInternalServerError, HTTPStatus(CodeInternal))
}
