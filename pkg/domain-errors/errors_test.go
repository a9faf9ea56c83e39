package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Justification: These are core error primitives used at every trust boundary.
// Unit tests ensure invariants like "wrapped domain errors preserve original code"
// and "errors.Is matches by code" are maintained.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeUnknownModel, Message: "model gpt-9 is not registered"}
		s.Equal("model gpt-9 is not registered", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeUnknownModel}
		s.Equal("unknown_model", err.Error())
	})
}

func (s *DomainErrorsSuite) TestUnwrap() {
	inner := errors.New("boom")
	err := &Error{Code: CodeInternal, Message: "wrapped", Err: inner}
	s.Equal(inner, errors.Unwrap(err))
}

func (s *DomainErrorsSuite) TestIsMatchesByCode() {
	s.Run("same code matches", func() {
		err := New(CodeRateLimited, "quota exceeded")
		s.True(errors.Is(err, &Error{Code: CodeRateLimited}))
	})

	s.Run("different code does not match", func() {
		err := New(CodeRateLimited, "quota exceeded")
		s.False(errors.Is(err, &Error{Code: CodeBackendError}))
	})

	s.Run("non-domain target does not match", func() {
		err := New(CodeRateLimited, "quota exceeded")
		s.False(errors.Is(err, errors.New("rate_limited")))
	})
}

func (s *DomainErrorsSuite) TestWrapPreservesOriginalCode() {
	inner := New(CodeConstraintViolation, "region not allowed")
	err := Wrap(inner, CodeInternal, "registration failed")

	s.True(HasCode(err, CodeConstraintViolation))
	s.False(HasCode(err, CodeInternal))
	s.Equal("registration failed", err.Error())
}

func (s *DomainErrorsSuite) TestWrapNonDomainError() {
	inner := errors.New("connection refused")
	err := Wrap(inner, CodeBackendError, "dispatch failed")

	s.True(HasCode(err, CodeBackendError))
	s.ErrorIs(err, inner)
}

func (s *DomainErrorsSuite) TestHasCodeThroughFmtWrapping() {
	err := fmt.Errorf("outer: %w", New(CodeModelNotAllowed, "nope"))
	s.True(HasCode(err, CodeModelNotAllowed))
}

func (s *DomainErrorsSuite) TestCodeOf() {
	s.Equal(CodeUnauthenticated, CodeOf(New(CodeUnauthenticated, "")))
	s.Equal(CodeInternal, CodeOf(errors.New("plain")))
}
