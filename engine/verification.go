package engine

import (
	"context"
	"fmt"
	"strings"

	"quiz-gatekeeper/config"
	"quiz-gatekeeper/database"
)

// Verifier drives a user from joining a group to verified or banned.
//
// State rows are insert-if-absent and never deleted, so a user whose
// row is already "banned" is not re-challenged on rejoin. Two answers
// from the same user racing each other are not serialized; the store's
// per-statement atomicity is the only guard.
type Verifier struct {
	store       Store
	cfg         *config.Config
	botUsername string
}

func NewVerifier(store Store, cfg *config.Config, botUsername string) *Verifier {
	return &Verifier{
		store:       store,
		cfg:         cfg,
		botUsername: botUsername,
	}
}

// OnMemberJoined handles a user becoming a member of a known group:
// creates the group row, restricts the user and points them at the
// private verification flow. A group without questions only gets a
// transient notice and the user stays unrestricted.
func (v *Verifier) OnMemberJoined(ctx context.Context, chatID int64, title string, user Member) ([]Action, error) {
	if !v.cfg.IsKnownGroup(chatID) {
		return nil, nil
	}

	if err := v.store.EnsureGroup(ctx, chatID, title); err != nil {
		return nil, err
	}

	questions, err := v.store.QuestionsFor(ctx, chatID)
	if err != nil {
		return nil, err
	}

	if len(questions) == 0 {
		return []Action{notice(chatID, fmt.Sprintf(
			"%s joined the group, but it has no verification questions yet. Add questions through the admin panel.",
			user.FullName,
		))}, nil
	}

	if err := v.store.UpsertUserState(ctx, user.ID, chatID); err != nil {
		return nil, err
	}

	return []Action{
		restrict(chatID, user.ID),
		notice(chatID, fmt.Sprintf(
			"Welcome, %s!\nPass verification: open https://t.me/%s?start=%d",
			user.FullName, v.botUsername, chatID,
		)),
	}, nil
}

// StartSession begins (or resumes) the private verification dialog for
// the group encoded in the deep-link and returns the first question.
func (v *Verifier) StartSession(ctx context.Context, chatID int64, user Member) ([]Action, error) {
	if !v.cfg.IsKnownGroup(chatID) {
		return []Action{sendTo(user.ID, "Invalid link.")}, nil
	}

	questions, err := v.store.QuestionsFor(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return []Action{sendTo(user.ID, "This group has no verification questions yet.")}, nil
	}

	if err := v.store.UpsertUserState(ctx, user.ID, chatID); err != nil {
		return nil, err
	}

	return []Action{sendTo(user.ID, "Answer the question:\n"+questions[0].Question)}, nil
}

// SubmitAnswer treats a private text message as an answer to the
// current question of the first group (in configured order) where the
// user is not verified. Messages from users with no pending
// verification are ignored.
func (v *Verifier) SubmitAnswer(ctx context.Context, user Member, text string) ([]Action, error) {
	var (
		chatID int64
		state  *database.UserGroupState
	)
	for _, gid := range v.cfg.Groups {
		st, err := v.store.UserState(ctx, user.ID, gid)
		if err != nil {
			return nil, err
		}
		if st != nil && st.Status == database.StatusNotVerified {
			chatID = gid
			state = st
			break
		}
	}
	if state == nil {
		return nil, nil
	}

	questions, err := v.store.QuestionsFor(ctx, chatID)
	if err != nil {
		return nil, err
	}

	idx := state.CurrentQIndex
	if idx >= len(questions) {
		return nil, nil
	}

	question := questions[idx]
	correct := strings.EqualFold(strings.TrimSpace(text), question.Answer)

	maxAttempts, err := v.store.MaxAttempts(ctx, chatID)
	if err != nil {
		return nil, err
	}

	// The attempt is logged before any state transition.
	if err := v.store.LogAnswer(ctx, chatID, user.ID, user.Username, question.Question, text, correct); err != nil {
		return nil, err
	}

	if correct {
		return v.advance(ctx, chatID, user, questions, idx+1)
	}
	return v.recordFailure(ctx, chatID, user, state.Attempts+1, maxAttempts)
}

func (v *Verifier) advance(ctx context.Context, chatID int64, user Member, questions []database.Question, next int) ([]Action, error) {
	if next < len(questions) {
		err := v.store.UpdateUserState(ctx, user.ID, chatID, database.StateUpdate{
			CurrentQIndex: intPtr(next),
			Attempts:      intPtr(0),
		})
		if err != nil {
			return nil, err
		}
		return []Action{sendTo(user.ID, "✅ Correct! Next question:\n"+questions[next].Question)}, nil
	}

	err := v.store.UpdateUserState(ctx, user.ID, chatID, database.StateUpdate{
		Status: strPtr(database.StatusVerified),
	})
	if err != nil {
		return nil, err
	}

	return []Action{
		unrestrict(chatID, user.ID),
		sendTo(user.ID, "Great! You answered all the questions, welcome to the group."),
		notice(chatID, fmt.Sprintf("%s passed verification!", user.FullName)),
	}, nil
}

func (v *Verifier) recordFailure(ctx context.Context, chatID int64, user Member, attempts, maxAttempts int) ([]Action, error) {
	err := v.store.UpdateUserState(ctx, user.ID, chatID, database.StateUpdate{
		Attempts: intPtr(attempts),
	})
	if err != nil {
		return nil, err
	}

	if attempts >= maxAttempts {
		err := v.store.UpdateUserState(ctx, user.ID, chatID, database.StateUpdate{
			Status: strPtr(database.StatusBanned),
		})
		if err != nil {
			return nil, err
		}
		return []Action{
			sendTo(user.ID, "Attempt limit exceeded, you are banned."),
			ban(chatID, user.ID),
			notice(chatID, fmt.Sprintf("%s was banned after failing verification.", user.FullName)),
		}, nil
	}

	return []Action{sendTo(user.ID, fmt.Sprintf(
		"❌ Wrong, try again (%d attempts remaining).", maxAttempts-attempts,
	))}, nil
}
