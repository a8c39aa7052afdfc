package engine

import (
	"context"

	"quiz-gatekeeper/database"
)

// Store is the persistence surface the engines need. database.MongoDB
// implements it; tests use an in-memory fake.
type Store interface {
	EnsureGroup(ctx context.Context, chatID int64, title string) error
	GroupsInfo(ctx context.Context) ([]database.Group, error)
	MaxAttempts(ctx context.Context, chatID int64) (int, error)
	SetMaxAttempts(ctx context.Context, chatID int64, n int) error

	QuestionsFor(ctx context.Context, chatID int64) ([]database.Question, error)
	AddQuestion(ctx context.Context, chatID int64, question, answer string) (*database.Question, error)
	DeleteQuestion(ctx context.Context, qid int64) error

	AddAdmin(ctx context.Context, chatID, userID int64) error
	IsGroupAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	AdminsFor(ctx context.Context, chatID int64) ([]int64, error)

	LogAnswer(ctx context.Context, chatID, userID int64, username, question, given string, correct bool) error
	Stats(ctx context.Context, chatID int64) (*database.GroupStats, error)

	UpsertUserState(ctx context.Context, userID, chatID int64) error
	UserState(ctx context.Context, userID, chatID int64) (*database.UserGroupState, error)
	UpdateUserState(ctx context.Context, userID, chatID int64, upd database.StateUpdate) error
}

// Member identifies the user behind an inbound event.
type Member struct {
	ID       int64
	Username string
	FullName string
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
