package domain

import "time"

// Identity is an unforgeable caller principal. Transport layers are
// responsible for authenticating it; inside the core it is compared
// against stored role fields, never against user-supplied parameters.
type Identity string

// Zero reports whether the identity is unset.
func (id Identity) Zero() bool { return id == "" }

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"` // 0-based index into Options
}

// QuizDefinition is the immutable content of a published quiz.
type QuizDefinition struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	PassingScore int        `json:"passingScore"` // 0..100
	Duration     int64      `json:"duration"`     // advisory, seconds
	StartTime    time.Time  `json:"startTime"`
	EndTime      time.Time  `json:"endTime"`
	Teacher      Identity   `json:"teacher"`
	Questions    []Question `json:"questions"`
}

// Attempt is a student's single, immutable submission and its score.
type Attempt struct {
	Student        Identity  `json:"student"`
	Answers        []int     `json:"answers"`
	Score          int       `json:"score"` // 0..100, truncating percentage
	Eligible       bool      `json:"eligible"`
	SubmittedAt    time.Time `json:"submittedAt"`
	ElapsedSeconds int64     `json:"elapsedSeconds"` // since quiz open, informational
}

// Credential certifies a passing attempt. One per (quiz, student), ever.
type Credential struct {
	QuizRef  string    `json:"quizRef"`
	Student  Identity  `json:"student"`
	TokenID  uint64    `json:"tokenId"`
	MintedAt time.Time `json:"mintedAt"`
}

// QuizSnapshot is the public read view of a quiz. Quiz content, including
// correct answers, is readable by anyone once the quiz exists.
type QuizSnapshot struct {
	Ref          string         `json:"ref"`
	Definition   QuizDefinition `json:"definition"`
	AttemptCount int            `json:"attemptCount"`
}

// Event types emitted by state-creating operations.
const (
	EventQuizCreated      = "quizCreated"
	EventQuizAttempted    = "quizAttempted"
	EventCredentialMinted = "credentialMinted"
)

// Event is one append-only record of a state-creating operation.
type Event struct {
	Type           string    `json:"type"`
	QuizRef        string    `json:"quizRef"`
	Teacher        Identity  `json:"teacher,omitempty"`
	Student        Identity  `json:"student,omitempty"`
	Score          int       `json:"score"`
	ElapsedSeconds int64     `json:"elapsedSeconds"`
	TokenID        uint64    `json:"tokenId"`
	At             time.Time `json:"at"`
}
