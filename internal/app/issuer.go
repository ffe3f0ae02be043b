package app

import (
	"sync"
	"time"

	"quizard-service/internal/domain"
)

// QuizDirectory resolves quiz references to live instances. Implemented by
// *Factory.
type QuizDirectory interface {
	Quiz(ref string) (*Quiz, bool)
}

// Issuer mints one non-transferable credential token per (quiz, student)
// pair. Minting is gated on the distributor role and on the quiz's own
// eligibility check.
type Issuer struct {
	id       domain.Identity
	name     string
	symbol   string
	registry *Registry
	quizzes  QuizDirectory
	feed     *Feed
	now      func() time.Time

	mu        sync.RWMutex
	nextToken uint64
	byToken   map[uint64]domain.Credential
}

// NewIssuer constructs an issuer acting under the given identity. The
// registry must be told about this identity (SetCredentialIssuer) before
// Mint can succeed.
func NewIssuer(id domain.Identity, name, symbol string, registry *Registry, quizzes QuizDirectory, feed *Feed) (*Issuer, error) {
	return newIssuerWithClock(id, name, symbol, registry, quizzes, feed, time.Now)
}

func newIssuerWithClock(id domain.Identity, name, symbol string, registry *Registry, quizzes QuizDirectory, feed *Feed, now func() time.Time) (*Issuer, error) {
	if id.Zero() {
		return nil, domain.ErrMissingIdentity
	}
	return &Issuer{
		id:       id,
		name:     name,
		symbol:   symbol,
		registry: registry,
		quizzes:  quizzes,
		feed:     feed,
		now:      now,
		byToken:  make(map[uint64]domain.Credential),
	}, nil
}

// ID returns the issuer's caller identity.
func (i *Issuer) ID() domain.Identity { return i.id }

// Name returns the credential collection name.
func (i *Issuer) Name() string { return i.name }

// Symbol returns the credential collection symbol.
func (i *Issuer) Symbol() string { return i.symbol }

// Transferable reports whether minted credentials can change owners.
// Credentials are bound to the student, so this is always false.
func (i *Issuer) Transferable() bool { return false }

// Mint issues the credential for (quizRef, student) and returns the assigned
// token ID. Only the distributor may call it. The issuer mutex makes the
// eligibility check, the counter increment, the credential write and the
// registry index one unit: two concurrent mints for the same pair cannot
// both succeed, and a failed mint consumes no token ID.
func (i *Issuer) Mint(caller domain.Identity, quizRef string, student domain.Identity) (uint64, error) {
	if caller.Zero() || caller != i.registry.Distributor() {
		return 0, domain.ErrUnauthorized
	}
	if student.Zero() {
		return 0, domain.ErrMissingIdentity
	}
	quiz, ok := i.quizzes.Quiz(quizRef)
	if !ok {
		return 0, domain.ErrQuizNotFound
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.registry.IsStudentCredentialed(student, quizRef) {
		return 0, domain.ErrAlreadyCredentialed
	}
	if !quiz.EligibleForCredential(student) {
		return 0, domain.ErrNotEligible
	}

	now := i.now()
	credential := domain.Credential{
		QuizRef:  quizRef,
		Student:  student,
		TokenID:  i.nextToken,
		MintedAt: now,
	}
	if err := i.registry.OnCredentialIssued(i.id, credential); err != nil {
		return 0, err
	}
	i.byToken[credential.TokenID] = credential
	i.nextToken++

	i.feed.Publish(domain.Event{
		Type:    domain.EventCredentialMinted,
		QuizRef: quizRef,
		Student: student,
		TokenID: credential.TokenID,
		At:      now,
	})
	return credential.TokenID, nil
}

// CredentialByToken returns the credential carrying the token ID, if minted.
func (i *Issuer) CredentialByToken(tokenID uint64) (domain.Credential, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	credential, ok := i.byToken[tokenID]
	return credential, ok
}

// OwnerOf returns the student holding the token, if minted.
func (i *Issuer) OwnerOf(tokenID uint64) (domain.Identity, bool) {
	credential, ok := i.CredentialByToken(tokenID)
	return credential.Student, ok
}

// TotalMinted returns how many credentials have been issued.
func (i *Issuer) TotalMinted() uint64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.nextToken
}
