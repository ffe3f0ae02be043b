package app

import (
	"sync"

	"quizard-service/internal/domain"
)

// Registry is the process-wide directory linking teachers, students, quizzes
// and credentials. Its indices are derived projections of quiz and issuer
// state: the owning component mutates its own state and the registry entry
// inside one atomic unit, so the indices never drift ahead of the truth.
type Registry struct {
	admin domain.Identity

	mu          sync.RWMutex
	factory     domain.Identity
	issuer      domain.Identity
	distributor domain.Identity

	quizzesByTeacher map[domain.Identity][]string
	teacherOfQuiz    map[string]domain.Identity
	quizzesByStudent map[domain.Identity][]string
	attended         map[string]map[domain.Identity]struct{}
	credsByStudent   map[domain.Identity][]domain.Credential
	credentialed     map[string]map[domain.Identity]struct{}
}

// NewRegistry constructs a registry administered by admin.
func NewRegistry(admin domain.Identity) (*Registry, error) {
	if admin.Zero() {
		return nil, domain.ErrMissingIdentity
	}
	return &Registry{
		admin:            admin,
		quizzesByTeacher: make(map[domain.Identity][]string),
		teacherOfQuiz:    make(map[string]domain.Identity),
		quizzesByStudent: make(map[domain.Identity][]string),
		attended:         make(map[string]map[domain.Identity]struct{}),
		credsByStudent:   make(map[domain.Identity][]domain.Credential),
		credentialed:     make(map[string]map[domain.Identity]struct{}),
	}, nil
}

// SetFactory records the factory identity. Admin only, last write wins.
func (r *Registry) SetFactory(caller, factory domain.Identity) error {
	return r.setRole(caller, factory, &r.factory)
}

// SetCredentialIssuer records the issuer identity. Admin only, last write wins.
func (r *Registry) SetCredentialIssuer(caller, issuer domain.Identity) error {
	return r.setRole(caller, issuer, &r.issuer)
}

// SetDistributor records the identity allowed to trigger minting.
func (r *Registry) SetDistributor(caller, distributor domain.Identity) error {
	return r.setRole(caller, distributor, &r.distributor)
}

func (r *Registry) setRole(caller, identity domain.Identity, slot *domain.Identity) error {
	if caller != r.admin {
		return domain.ErrUnauthorized
	}
	if identity.Zero() {
		return domain.ErrMissingIdentity
	}
	r.mu.Lock()
	*slot = identity
	r.mu.Unlock()
	return nil
}

// Factory returns the configured factory identity.
func (r *Registry) Factory() domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factory
}

// CredentialIssuer returns the configured issuer identity.
func (r *Registry) CredentialIssuer() domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.issuer
}

// Distributor returns the identity allowed to trigger minting.
func (r *Registry) Distributor() domain.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.distributor
}

// OnQuizCreated indexes a freshly created quiz under its teacher. Only the
// configured factory may call it; a quiz reference is indexed at most once,
// globally.
func (r *Registry) OnQuizCreated(caller, teacher domain.Identity, quizRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller.Zero() || caller != r.factory {
		return domain.ErrUnauthorized
	}
	if _, ok := r.teacherOfQuiz[quizRef]; ok {
		return domain.ErrDuplicateRegistration
	}
	r.teacherOfQuiz[quizRef] = teacher
	r.quizzesByTeacher[teacher] = append(r.quizzesByTeacher[teacher], quizRef)
	return nil
}

// OnStudentAttended indexes a student's attendance. The caller must be a
// previously registered quiz; the quiz already enforces single attempts, so
// a duplicate here signals a replay bug in the caller.
func (r *Registry) OnStudentAttended(quizRef string, student domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.teacherOfQuiz[quizRef]; !ok {
		return domain.ErrUnauthorized
	}
	if _, ok := r.attended[quizRef][student]; ok {
		return domain.ErrDuplicateRegistration
	}
	if r.attended[quizRef] == nil {
		r.attended[quizRef] = make(map[domain.Identity]struct{})
	}
	r.attended[quizRef][student] = struct{}{}
	r.quizzesByStudent[student] = append(r.quizzesByStudent[student], quizRef)
	return nil
}

// OnCredentialIssued indexes a minted credential. Only the configured issuer
// may call it; a (student, quiz) pair is credentialed at most once.
func (r *Registry) OnCredentialIssued(caller domain.Identity, credential domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller.Zero() || caller != r.issuer {
		return domain.ErrUnauthorized
	}
	if _, ok := r.credentialed[credential.QuizRef][credential.Student]; ok {
		return domain.ErrDuplicateRegistration
	}
	if r.credentialed[credential.QuizRef] == nil {
		r.credentialed[credential.QuizRef] = make(map[domain.Identity]struct{})
	}
	r.credentialed[credential.QuizRef][credential.Student] = struct{}{}
	r.credsByStudent[credential.Student] = append(r.credsByStudent[credential.Student], credential)
	return nil
}

// IsTeacherOwnQuiz reports whether the teacher created the quiz.
func (r *Registry) IsTeacherOwnQuiz(teacher domain.Identity, quizRef string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.teacherOfQuiz[quizRef]
	return ok && owner == teacher
}

// IsStudentAttended reports whether the student attempted the quiz.
func (r *Registry) IsStudentAttended(student domain.Identity, quizRef string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.attended[quizRef][student]
	return ok
}

// IsStudentCredentialed reports whether the pair already holds a credential.
func (r *Registry) IsStudentCredentialed(student domain.Identity, quizRef string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.credentialed[quizRef][student]
	return ok
}

// QuizzesByTeacher lists quiz references created by the teacher, in
// insertion order. Empty slice when none.
func (r *Registry) QuizzesByTeacher(teacher domain.Identity) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.quizzesByTeacher[teacher]...)
}

// QuizzesByStudent lists quiz references the student attended, in insertion
// order. Empty slice when none.
func (r *Registry) QuizzesByStudent(student domain.Identity) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.quizzesByStudent[student]...)
}

// CredentialsByStudent lists the student's credentials in insertion order.
// Empty slice when none.
func (r *Registry) CredentialsByStudent(student domain.Identity) []domain.Credential {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Credential{}, r.credsByStudent[student]...)
}
