package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"quiz-gatekeeper/config"
	"quiz-gatekeeper/database"
)

// ErrAttemptsOutOfRange is returned by SetMaxAttempts for values
// outside 1..10.
var ErrAttemptsOutOfRange = errors.New("attempts must be between 1 and 10")

const (
	minAttempts      = 1
	maxAttemptsLimit = 10
)

// Console processes admin operations. Every mutating operation is
// gated by IsAdmin at its call site.
//
// The pending map is the single-slot memory of the two-step
// add-question flow: arming it for an admin overwrites any previous
// slot, and the slot is cleared on the admin's next private message
// whether or not that message parses.
type Console struct {
	store Store
	cfg   *config.Config

	mu      sync.Mutex
	pending map[int64]int64 // admin user id -> target chat id
}

func NewConsole(store Store, cfg *config.Config) *Console {
	return &Console{
		store:   store,
		cfg:     cfg,
		pending: make(map[int64]int64),
	}
}

// IsAdmin reports whether userID may administer chatID: super-admins
// always pass, others need a group_admins row.
func (c *Console) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if c.cfg.IsSuperAdmin(userID) {
		return true, nil
	}
	return c.store.IsGroupAdmin(ctx, chatID, userID)
}

func (c *Console) AddAdmin(ctx context.Context, chatID, userID int64) error {
	return c.store.AddAdmin(ctx, chatID, userID)
}

func (c *Console) GroupsInfo(ctx context.Context) ([]database.Group, error) {
	return c.store.GroupsInfo(ctx)
}

func (c *Console) Admins(ctx context.Context, chatID int64) ([]int64, error) {
	return c.store.AdminsFor(ctx, chatID)
}

func (c *Console) Questions(ctx context.Context, chatID int64) ([]database.Question, error) {
	return c.store.QuestionsFor(ctx, chatID)
}

// ErrEmptyQuestion is returned by AddQuestion when the question or the
// answer is blank.
var ErrEmptyQuestion = errors.New("question and answer must not be empty")

func (c *Console) AddQuestion(ctx context.Context, chatID int64, question, answer string) (*database.Question, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, ErrEmptyQuestion
	}
	return c.store.AddQuestion(ctx, chatID, question, answer)
}

func (c *Console) DeleteQuestion(ctx context.Context, qid int64) error {
	return c.store.DeleteQuestion(ctx, qid)
}

func (c *Console) MaxAttempts(ctx context.Context, chatID int64) (int, error) {
	return c.store.MaxAttempts(ctx, chatID)
}

func (c *Console) SetMaxAttempts(ctx context.Context, chatID int64, n int) error {
	if n < minAttempts || n > maxAttemptsLimit {
		return ErrAttemptsOutOfRange
	}
	return c.store.SetMaxAttempts(ctx, chatID, n)
}

func (c *Console) Stats(ctx context.Context, chatID int64) (*database.GroupStats, error) {
	return c.store.Stats(ctx, chatID)
}

// ArmAddQuestion records that the admin's next private message is a
// question|answer pair for chatID. A previously armed slot for the
// same admin is overwritten.
func (c *Console) ArmAddQuestion(adminID, chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[adminID] = chatID
}

// ConsumePending handles a private message from an admin with an armed
// add-question slot. It reports whether the message was consumed and
// the reply to show. The slot is cleared after one attempt, parsed or
// not; a message without the "|" separator only yields a format error.
func (c *Console) ConsumePending(ctx context.Context, adminID int64, text string) (bool, string, error) {
	c.mu.Lock()
	chatID, armed := c.pending[adminID]
	if armed {
		delete(c.pending, adminID)
	}
	c.mu.Unlock()

	if !armed {
		return false, "", nil
	}

	question, answer, found := strings.Cut(text, "|")
	if !found {
		return true, "Format: question|answer", nil
	}

	_, err := c.AddQuestion(ctx, chatID, question, answer)
	if errors.Is(err, ErrEmptyQuestion) {
		return true, "Format: question|answer", nil
	}
	if err != nil {
		return true, "", err
	}
	return true, "Question added.", nil
}
