package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-gatekeeper/config"
	"quiz-gatekeeper/database"
)

func testVerifier(store Store, groups ...int64) *Verifier {
	cfg := &config.Config{Groups: groups, DefaultAttempts: 3}
	return NewVerifier(store, cfg, "gatekeeper_bot")
}

func kinds(actions []Action) []ActionKind {
	result := make([]ActionKind, 0, len(actions))
	for _, a := range actions {
		result = append(result, a.Kind)
	}
	return result
}

func hasKind(actions []Action, kind ActionKind) bool {
	for _, a := range actions {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

func TestOnMemberJoined(t *testing.T) {
	ctx := context.Background()
	user := Member{ID: 100, Username: "alice", FullName: "Alice"}

	t.Run("unknown group is ignored", func(t *testing.T) {
		store := newMemStore(3)
		v := testVerifier(store, -1)

		actions, err := v.OnMemberJoined(ctx, -999, "Other", user)
		require.NoError(t, err)
		assert.Empty(t, actions)
	})

	t.Run("empty question list never restricts", func(t *testing.T) {
		store := newMemStore(3)
		v := testVerifier(store, -1)

		actions, err := v.OnMemberJoined(ctx, -1, "Group", user)
		require.NoError(t, err)

		assert.Equal(t, []ActionKind{ActionGroupNotice}, kinds(actions))

		state, err := store.UserState(ctx, user.ID, -1)
		require.NoError(t, err)
		assert.Nil(t, state, "no state row for a group without questions")
	})

	t.Run("restricts and creates not_verified state", func(t *testing.T) {
		store := newMemStore(3)
		_, err := store.AddQuestion(ctx, -1, "2+2", "4")
		require.NoError(t, err)
		v := testVerifier(store, -1)

		actions, err := v.OnMemberJoined(ctx, -1, "Group", user)
		require.NoError(t, err)

		require.Equal(t, []ActionKind{ActionRestrict, ActionGroupNotice}, kinds(actions))
		assert.Equal(t, user.ID, actions[0].UserID)
		assert.Contains(t, actions[1].Text, "https://t.me/gatekeeper_bot?start=-1")

		state, err := store.UserState(ctx, user.ID, -1)
		require.NoError(t, err)
		require.NotNil(t, state)
		assert.Equal(t, database.StatusNotVerified, state.Status)
		assert.Equal(t, 0, state.Attempts)
		assert.Equal(t, 0, state.CurrentQIndex)
	})

	t.Run("banned row survives a rejoin", func(t *testing.T) {
		store := newMemStore(3)
		_, err := store.AddQuestion(ctx, -1, "2+2", "4")
		require.NoError(t, err)
		v := testVerifier(store, -1)

		require.NoError(t, store.UpsertUserState(ctx, user.ID, -1))
		require.NoError(t, store.UpdateUserState(ctx, user.ID, -1, database.StateUpdate{
			Status: strPtr(database.StatusBanned),
		}))

		_, err = v.OnMemberJoined(ctx, -1, "Group", user)
		require.NoError(t, err)

		state, err := store.UserState(ctx, user.ID, -1)
		require.NoError(t, err)
		assert.Equal(t, database.StatusBanned, state.Status, "insert-if-absent keeps the banned row")
	})
}

func TestStartSession(t *testing.T) {
	ctx := context.Background()
	user := Member{ID: 100, Username: "alice", FullName: "Alice"}

	t.Run("unknown group", func(t *testing.T) {
		store := newMemStore(3)
		v := testVerifier(store, -1)

		actions, err := v.StartSession(ctx, -999, user)
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, "Invalid link.", actions[0].Text)
	})

	t.Run("no questions configured", func(t *testing.T) {
		store := newMemStore(3)
		v := testVerifier(store, -1)

		actions, err := v.StartSession(ctx, -1, user)
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Contains(t, actions[0].Text, "no verification questions")
	})

	t.Run("returns the first question", func(t *testing.T) {
		store := newMemStore(3)
		_, err := store.AddQuestion(ctx, -1, "2+2", "4")
		require.NoError(t, err)
		_, err = store.AddQuestion(ctx, -1, "color of sky", "blue")
		require.NoError(t, err)
		v := testVerifier(store, -1)

		actions, err := v.StartSession(ctx, -1, user)
		require.NoError(t, err)
		require.Len(t, actions, 1)
		assert.Equal(t, user.ID, actions[0].ChatID)
		assert.Contains(t, actions[0].Text, "2+2")
	})
}

func TestSubmitAnswerMatching(t *testing.T) {
	ctx := context.Background()
	user := Member{ID: 100, Username: "alice", FullName: "Alice"}

	cases := []struct {
		given   string
		correct bool
	}{
		{"paris", true},
		{" PARIS ", true},
		{"Paris", true},
		{"Paris!", false},
	}

	for _, tc := range cases {
		t.Run(tc.given, func(t *testing.T) {
			store := newMemStore(3)
			_, err := store.AddQuestion(ctx, -1, "capital of France", "Paris")
			require.NoError(t, err)
			require.NoError(t, store.UpsertUserState(ctx, user.ID, -1))
			v := testVerifier(store, -1)

			_, err = v.SubmitAnswer(ctx, user, tc.given)
			require.NoError(t, err)

			require.Len(t, store.log, 1)
			assert.Equal(t, tc.correct, store.log[0].IsCorrect)

			state, err := store.UserState(ctx, user.ID, -1)
			require.NoError(t, err)
			if tc.correct {
				assert.Equal(t, database.StatusVerified, state.Status)
			} else {
				assert.Equal(t, database.StatusNotVerified, state.Status)
				assert.Equal(t, 1, state.Attempts)
			}
		})
	}
}

func TestSubmitAnswerIgnoredWithoutState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(3)
	_, err := store.AddQuestion(ctx, -1, "2+2", "4")
	require.NoError(t, err)
	v := testVerifier(store, -1)

	actions, err := v.SubmitAnswer(ctx, Member{ID: 100}, "4")
	require.NoError(t, err)
	assert.Empty(t, actions)
	assert.Empty(t, store.log, "a message that is not an answer is not logged")
}

func TestSubmitAnswerScenario(t *testing.T) {
	// Group with questions [("2+2","4"), ("color of sky","blue")] and
	// max_attempts=2.
	ctx := context.Background()
	user := Member{ID: 100, Username: "u", FullName: "U"}

	store := newMemStore(3)
	require.NoError(t, store.EnsureGroup(ctx, -1, "G"))
	require.NoError(t, store.SetMaxAttempts(ctx, -1, 2))
	_, err := store.AddQuestion(ctx, -1, "2+2", "4")
	require.NoError(t, err)
	_, err = store.AddQuestion(ctx, -1, "color of sky", "blue")
	require.NoError(t, err)

	v := testVerifier(store, -1)

	actions, err := v.OnMemberJoined(ctx, -1, "G", user)
	require.NoError(t, err)
	require.True(t, hasKind(actions, ActionRestrict))

	// Correct first answer advances the index and keeps attempts at 0.
	actions, err = v.SubmitAnswer(ctx, user, "4")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Text, "color of sky")

	state, err := store.UserState(ctx, user.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, database.StatusNotVerified, state.Status)
	assert.Equal(t, 0, state.Attempts)
	assert.Equal(t, 1, state.CurrentQIndex)

	// Wrong answer burns an attempt but keeps the index.
	actions, err = v.SubmitAnswer(ctx, user, "red")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Text, "1 attempts remaining")

	state, err = store.UserState(ctx, user.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Attempts)
	assert.Equal(t, 1, state.CurrentQIndex)

	// Final correct answer verifies and restores permissions.
	actions, err = v.SubmitAnswer(ctx, user, "blue")
	require.NoError(t, err)
	assert.Equal(t, []ActionKind{ActionUnrestrict, ActionSendMessage, ActionGroupNotice}, kinds(actions))

	state, err = store.UserState(ctx, user.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, database.StatusVerified, state.Status)
}

func TestAttemptExhaustion(t *testing.T) {
	ctx := context.Background()
	user := Member{ID: 100, Username: "u", FullName: "U"}

	store := newMemStore(3)
	require.NoError(t, store.EnsureGroup(ctx, -1, "G"))
	_, err := store.AddQuestion(ctx, -1, "2+2", "4")
	require.NoError(t, err)
	require.NoError(t, store.UpsertUserState(ctx, user.ID, -1))

	v := testVerifier(store, -1)

	for i := 0; i < 2; i++ {
		actions, err := v.SubmitAnswer(ctx, user, "5")
		require.NoError(t, err)
		assert.False(t, hasKind(actions, ActionBan))
	}

	actions, err := v.SubmitAnswer(ctx, user, "5")
	require.NoError(t, err)
	assert.True(t, hasKind(actions, ActionBan))
	assert.True(t, hasKind(actions, ActionGroupNotice))

	state, err := store.UserState(ctx, user.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, database.StatusBanned, state.Status)

	// The third wrong answer is logged before the ban transition.
	require.Len(t, store.log, 3)
	assert.False(t, store.log[2].IsCorrect)
}

func TestSubmitAnswerFirstMatchGroup(t *testing.T) {
	// The user is mid-verification in two groups; the answer goes to
	// the first group in configured order.
	ctx := context.Background()
	user := Member{ID: 100, Username: "u", FullName: "U"}

	store := newMemStore(3)
	_, err := store.AddQuestion(ctx, -1, "2+2", "4")
	require.NoError(t, err)
	_, err = store.AddQuestion(ctx, -2, "2+2", "4")
	require.NoError(t, err)
	require.NoError(t, store.UpsertUserState(ctx, user.ID, -1))
	require.NoError(t, store.UpsertUserState(ctx, user.ID, -2))

	v := testVerifier(store, -1, -2)

	_, err = v.SubmitAnswer(ctx, user, "4")
	require.NoError(t, err)

	first, err := store.UserState(ctx, user.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, database.StatusVerified, first.Status)

	second, err := store.UserState(ctx, user.ID, -2)
	require.NoError(t, err)
	assert.Equal(t, database.StatusNotVerified, second.Status, "only the first match is addressed")
}

func TestQuestionDeletionShiftsSequence(t *testing.T) {
	// Deleting a question before the user's index shifts the effective
	// remaining sequence; the index is not adjusted.
	ctx := context.Background()
	user := Member{ID: 100, Username: "u", FullName: "U"}

	store := newMemStore(3)
	q1, err := store.AddQuestion(ctx, -1, "first", "one")
	require.NoError(t, err)
	_, err = store.AddQuestion(ctx, -1, "second", "two")
	require.NoError(t, err)
	_, err = store.AddQuestion(ctx, -1, "third", "three")
	require.NoError(t, err)
	require.NoError(t, store.UpsertUserState(ctx, user.ID, -1))

	v := testVerifier(store, -1)

	_, err = v.SubmitAnswer(ctx, user, "one")
	require.NoError(t, err)

	require.NoError(t, store.DeleteQuestion(ctx, q1.ID))

	// Index 1 now points at "third"; "two" is wrong there.
	actions, err := v.SubmitAnswer(ctx, user, "two")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Text, "attempts remaining")

	actions, err = v.SubmitAnswer(ctx, user, "three")
	require.NoError(t, err)
	assert.True(t, hasKind(actions, ActionUnrestrict))

	state, err := store.UserState(ctx, user.ID, -1)
	require.NoError(t, err)
	assert.Equal(t, database.StatusVerified, state.Status, "the skipped question is never asked")
}

func TestLiveMaxAttemptsLookup(t *testing.T) {
	// Lowering the limit mid-session retroactively reduces the
	// remaining tries.
	ctx := context.Background()
	user := Member{ID: 100, Username: "u", FullName: "U"}

	store := newMemStore(3)
	require.NoError(t, store.EnsureGroup(ctx, -1, "G"))
	require.NoError(t, store.SetMaxAttempts(ctx, -1, 5))
	_, err := store.AddQuestion(ctx, -1, "2+2", "4")
	require.NoError(t, err)
	require.NoError(t, store.UpsertUserState(ctx, user.ID, -1))

	v := testVerifier(store, -1)

	_, err = v.SubmitAnswer(ctx, user, "5")
	require.NoError(t, err)

	require.NoError(t, store.SetMaxAttempts(ctx, -1, 2))

	actions, err := v.SubmitAnswer(ctx, user, "5")
	require.NoError(t, err)
	assert.True(t, hasKind(actions, ActionBan))
}
