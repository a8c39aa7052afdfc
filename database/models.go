package database

import (
	"time"
)

// Verification statuses stored in user_group_state.
const (
	StatusNotVerified = "not_verified"
	StatusVerified    = "verified"
	StatusBanned      = "banned"
)

// Group model
type Group struct {
	ChatID      int64  `bson:"chat_id" json:"chat_id"`
	Title       string `bson:"title" json:"title"`
	MaxAttempts int    `bson:"max_attempts" json:"max_attempts"`
}

// Question model. IDs are assigned monotonically from the counters
// collection; ascending id order is the quiz sequence.
type Question struct {
	ID       int64  `bson:"id" json:"id"`
	ChatID   int64  `bson:"chat_id" json:"chat_id"`
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

// GroupAdmin model, set semantics over (chat_id, user_id).
type GroupAdmin struct {
	ChatID int64 `bson:"chat_id" json:"chat_id"`
	UserID int64 `bson:"user_id" json:"user_id"`
}

// AnswerLogEntry model. Append-only; question and answer are snapshots
// taken at answer time.
type AnswerLogEntry struct {
	ID          int64     `bson:"id" json:"id"`
	ChatID      int64     `bson:"chat_id" json:"chat_id"`
	UserID      int64     `bson:"user_id" json:"user_id"`
	Username    string    `bson:"username" json:"username"`
	Question    string    `bson:"question" json:"question"`
	GivenAnswer string    `bson:"given_answer" json:"given_answer"`
	IsCorrect   bool      `bson:"is_correct" json:"is_correct"`
	Timestamp   time.Time `bson:"ts" json:"ts"`
}

// UserGroupState model, keyed by (user_id, chat_id). One row per pair;
// rows are inserted if absent and never deleted.
type UserGroupState struct {
	UserID        int64  `bson:"user_id" json:"user_id"`
	ChatID        int64  `bson:"chat_id" json:"chat_id"`
	Status        string `bson:"status" json:"status"`
	Attempts      int    `bson:"attempts" json:"attempts"`
	CurrentQIndex int    `bson:"current_q_index" json:"current_q_index"`
}

// StateUpdate is a partial update of UserGroupState: only the fields
// that are set change, the rest keep their stored values.
type StateUpdate struct {
	Status        *string
	Attempts      *int
	CurrentQIndex *int
}

// GroupStats is the aggregate answer-log view for one group.
type GroupStats struct {
	Total   int64            `json:"total"`
	Correct int64            `json:"correct"`
	Wrong   int64            `json:"wrong"`
	Last    []AnswerLogEntry `json:"last"`
}
