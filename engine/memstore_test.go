package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"quiz-gatekeeper/database"
)

type pairKey struct {
	userID int64
	chatID int64
}

// memStore is an in-memory Store with the same semantics as the mongo
// implementation.
type memStore struct {
	mu sync.Mutex

	defaultAttempts int
	groups          map[int64]*database.Group
	questions       []database.Question
	admins          map[pairKey]bool
	log             []database.AnswerLogEntry
	states          map[pairKey]*database.UserGroupState

	nextQuestionID int64
	nextLogID      int64
}

func newMemStore(defaultAttempts int) *memStore {
	return &memStore{
		defaultAttempts: defaultAttempts,
		groups:          make(map[int64]*database.Group),
		admins:          make(map[pairKey]bool),
		states:          make(map[pairKey]*database.UserGroupState),
	}
}

func (m *memStore) EnsureGroup(_ context.Context, chatID int64, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[chatID]; ok {
		g.Title = title
		return nil
	}
	m.groups[chatID] = &database.Group{ChatID: chatID, Title: title, MaxAttempts: m.defaultAttempts}
	return nil
}

func (m *memStore) GroupsInfo(_ context.Context) ([]database.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	groups := make([]database.Group, 0, len(m.groups))
	for _, g := range m.groups {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ChatID < groups[j].ChatID })
	return groups, nil
}

func (m *memStore) MaxAttempts(_ context.Context, chatID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[chatID]; ok {
		return g.MaxAttempts, nil
	}
	return m.defaultAttempts, nil
}

func (m *memStore) SetMaxAttempts(_ context.Context, chatID int64, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[chatID]; ok {
		g.MaxAttempts = n
	}
	return nil
}

func (m *memStore) QuestionsFor(_ context.Context, chatID int64) ([]database.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var questions []database.Question
	for _, q := range m.questions {
		if q.ChatID == chatID {
			questions = append(questions, q)
		}
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })
	return questions, nil
}

func (m *memStore) AddQuestion(_ context.Context, chatID int64, question, answer string) (*database.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextQuestionID++
	q := database.Question{ID: m.nextQuestionID, ChatID: chatID, Question: question, Answer: answer}
	m.questions = append(m.questions, q)
	return &q, nil
}

func (m *memStore) DeleteQuestion(_ context.Context, qid int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.questions[:0]
	for _, q := range m.questions {
		if q.ID != qid {
			kept = append(kept, q)
		}
	}
	m.questions = kept
	return nil
}

func (m *memStore) AddAdmin(_ context.Context, chatID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[pairKey{userID, chatID}] = true
	return nil
}

func (m *memStore) IsGroupAdmin(_ context.Context, chatID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.admins[pairKey{userID, chatID}], nil
}

func (m *memStore) AdminsFor(_ context.Context, chatID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for key := range m.admins {
		if key.chatID == chatID {
			ids = append(ids, key.userID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memStore) LogAnswer(_ context.Context, chatID, userID int64, username, question, given string, correct bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLogID++
	m.log = append(m.log, database.AnswerLogEntry{
		ID:          m.nextLogID,
		ChatID:      chatID,
		UserID:      userID,
		Username:    username,
		Question:    question,
		GivenAnswer: given,
		IsCorrect:   correct,
		Timestamp:   time.Now(),
	})
	return nil
}

func (m *memStore) Stats(_ context.Context, chatID int64) (*database.GroupStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &database.GroupStats{}
	for i := len(m.log) - 1; i >= 0; i-- {
		entry := m.log[i]
		if entry.ChatID != chatID {
			continue
		}
		stats.Total++
		if entry.IsCorrect {
			stats.Correct++
		} else {
			stats.Wrong++
		}
		if len(stats.Last) < 10 {
			stats.Last = append(stats.Last, entry)
		}
	}
	return stats, nil
}

func (m *memStore) UpsertUserState(_ context.Context, userID, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey{userID, chatID}
	if _, ok := m.states[key]; ok {
		return nil
	}
	m.states[key] = &database.UserGroupState{
		UserID: userID,
		ChatID: chatID,
		Status: database.StatusNotVerified,
	}
	return nil
}

func (m *memStore) UserState(_ context.Context, userID, chatID int64) (*database.UserGroupState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.states[pairKey{userID, chatID}]; ok {
		copied := *st
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) UpdateUserState(_ context.Context, userID, chatID int64, upd database.StateUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[pairKey{userID, chatID}]
	if !ok {
		return nil
	}
	if upd.Status != nil {
		st.Status = *upd.Status
	}
	if upd.Attempts != nil {
		st.Attempts = *upd.Attempts
	}
	if upd.CurrentQIndex != nil {
		st.CurrentQIndex = *upd.CurrentQIndex
	}
	return nil
}
