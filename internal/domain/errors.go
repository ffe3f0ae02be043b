package domain

import "errors"

var (
	// ErrInvalidDefinition is returned when quiz creation input is malformed.
	ErrInvalidDefinition = errors.New("invalid quiz definition")
	// ErrWindowClosed is returned when an attempt lands outside [startTime, endTime].
	ErrWindowClosed = errors.New("quiz window closed")
	// ErrAlreadyAttempted is returned on a second submission for the same quiz.
	ErrAlreadyAttempted = errors.New("student already attempted quiz")
	// ErrMalformedAnswers indicates an answer sequence with the wrong shape or bounds.
	ErrMalformedAnswers = errors.New("malformed answer sequence")
	// ErrNotEligible is returned when minting is requested without a passing attempt.
	ErrNotEligible = errors.New("student not eligible for credential")
	// ErrAlreadyCredentialed is returned when a credential already exists for the pair.
	ErrAlreadyCredentialed = errors.New("student already credentialed for quiz")
	// ErrDuplicateRegistration indicates a registry index would be written twice.
	ErrDuplicateRegistration = errors.New("duplicate registry entry")
	// ErrUnauthorized indicates the caller identity does not hold the required role.
	ErrUnauthorized = errors.New("caller not authorized")
	// ErrMissingIdentity is returned when a required identity argument is unset.
	ErrMissingIdentity = errors.New("identity must not be empty")
	// ErrQuizNotFound indicates the quiz reference is unknown.
	ErrQuizNotFound = errors.New("quiz not found")
)
