package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"quiz-gatekeeper/engine"
	"quiz-gatekeeper/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (h *BotHandler) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	data := callback.Data

	logger.Log.Debug("Callback",
		zap.Int64("user_id", callback.From.ID),
		zap.String("data", data),
	)

	switch {
	case strings.HasPrefix(data, "pick_"):
		h.handlePickGroup(ctx, callback)
	case strings.HasPrefix(data, "stats_"):
		h.handleStats(ctx, callback)
	case strings.HasPrefix(data, "addq_"):
		h.handleAddQuestion(ctx, callback)
	case strings.HasPrefix(data, "listq_"):
		h.handleListQuestions(ctx, callback)
	case strings.HasPrefix(data, "delq_"):
		h.handleDeleteQuestion(ctx, callback)
	case strings.HasPrefix(data, "att_"):
		h.handleAttemptsMenu(ctx, callback)
	case strings.HasPrefix(data, "setatt_"):
		h.handleSetAttempts(ctx, callback)
	default:
		h.answerCallback(callback.ID, "Unknown command")
	}
}

// authorizeCallback runs the admin gate for a callback and answers it
// with a denial when the gate fails.
func (h *BotHandler) authorizeCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, chatID int64) bool {
	ok, err := h.console.IsAdmin(ctx, chatID, callback.From.ID)
	if err != nil {
		logger.Log.Error("Error checking admin", zap.Error(err))
		h.answerCallback(callback.ID, "Server error")
		return false
	}
	if !ok {
		h.answerCallback(callback.ID, "No access")
		return false
	}
	return true
}

func (h *BotHandler) handlePickGroup(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID, err := callbackChatID(callback.Data)
	if err != nil {
		h.answerCallback(callback.ID, "Data error")
		return
	}
	if !h.authorizeCallback(ctx, callback, chatID) {
		return
	}

	h.editMessage(callback, fmt.Sprintf("Managing group %d:", chatID), adminMenuKeyboard(chatID))
	h.answerCallback(callback.ID, "")
}

func (h *BotHandler) handleStats(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID, err := callbackChatID(callback.Data)
	if err != nil {
		h.answerCallback(callback.ID, "Data error")
		return
	}
	if !h.authorizeCallback(ctx, callback, chatID) {
		return
	}

	stats, err := h.console.Stats(ctx, chatID)
	if err != nil {
		logger.Log.Error("Error loading stats", zap.Error(err))
		h.answerCallback(callback.ID, "Server error")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 %d\n✅ %d ❌ %d 📓 %d\n\nRecent:\n", chatID, stats.Correct, stats.Wrong, stats.Total)
	for _, entry := range stats.Last {
		mark := "❌"
		if entry.IsCorrect {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s %s: %s → %s\n", mark, entry.Username, entry.Question, entry.GivenAnswer)
	}

	h.editMessage(callback, b.String(), backKeyboard(chatID))
	h.answerCallback(callback.ID, "")
}

func (h *BotHandler) handleAddQuestion(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID, err := callbackChatID(callback.Data)
	if err != nil {
		h.answerCallback(callback.ID, "Data error")
		return
	}
	if !h.authorizeCallback(ctx, callback, chatID) {
		return
	}

	h.console.ArmAddQuestion(callback.From.ID, chatID)
	h.sendMessage(callback.From.ID, fmt.Sprintf(
		"Send the new question and answer for group %d:\nquestion|answer", chatID,
	))
	h.answerCallback(callback.ID, "Waiting for the question in private chat.")
}

func (h *BotHandler) handleListQuestions(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID, err := callbackChatID(callback.Data)
	if err != nil {
		h.answerCallback(callback.ID, "Data error")
		return
	}
	if !h.authorizeCallback(ctx, callback, chatID) {
		return
	}

	h.renderQuestionList(ctx, callback, chatID)
	h.answerCallback(callback.ID, "")
}

func (h *BotHandler) handleDeleteQuestion(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	parts := strings.Split(callback.Data, "_")
	if len(parts) != 3 {
		h.answerCallback(callback.ID, "Data error")
		return
	}
	chatID, err1 := strconv.ParseInt(parts[1], 10, 64)
	qid, err2 := strconv.ParseInt(parts[2], 10, 64)
	if err1 != nil || err2 != nil {
		h.answerCallback(callback.ID, "Data error")
		return
	}
	if !h.authorizeCallback(ctx, callback, chatID) {
		return
	}

	if err := h.console.DeleteQuestion(ctx, qid); err != nil {
		logger.Log.Error("Error deleting question", zap.Error(err))
		h.answerCallback(callback.ID, "Server error")
		return
	}

	h.answerCallback(callback.ID, "Deleted")
	h.renderQuestionList(ctx, callback, chatID)
}

func (h *BotHandler) renderQuestionList(ctx context.Context, callback *tgbotapi.CallbackQuery, chatID int64) {
	questions, err := h.console.Questions(ctx, chatID)
	if err != nil {
		logger.Log.Error("Error listing questions", zap.Error(err))
		h.answerCallback(callback.ID, "Server error")
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, q := range questions {
		label := q.Question
		if len(label) > 30 {
			label = label[:30]
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("delq_%d_%d", chatID, q.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Back", fmt.Sprintf("pick_%d", chatID)),
	))

	h.editMessage(callback, "Tap a question to delete it:", tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (h *BotHandler) handleAttemptsMenu(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	chatID, err := callbackChatID(callback.Data)
	if err != nil {
		h.answerCallback(callback.ID, "Data error")
		return
	}
	if !h.authorizeCallback(ctx, callback, chatID) {
		return
	}

	current, err := h.console.MaxAttempts(ctx, chatID)
	if err != nil {
		logger.Log.Error("Error loading attempts", zap.Error(err))
		h.answerCallback(callback.ID, "Server error")
		return
	}

	var quickPick []tgbotapi.InlineKeyboardButton
	for i := 1; i <= 5; i++ {
		quickPick = append(quickPick, tgbotapi.NewInlineKeyboardButtonData(
			strconv.Itoa(i), fmt.Sprintf("setatt_%d_%d", chatID, i),
		))
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		quickPick,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", fmt.Sprintf("pick_%d", chatID)),
		),
	)

	h.editMessage(callback, fmt.Sprintf("Current: %d. Choose:", current), keyboard)
	h.answerCallback(callback.ID, "")
}

func (h *BotHandler) handleSetAttempts(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	parts := strings.Split(callback.Data, "_")
	if len(parts) != 3 {
		h.answerCallback(callback.ID, "Data error")
		return
	}
	chatID, err1 := strconv.ParseInt(parts[1], 10, 64)
	n, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		h.answerCallback(callback.ID, "Data error")
		return
	}
	if !h.authorizeCallback(ctx, callback, chatID) {
		return
	}

	if err := h.console.SetMaxAttempts(ctx, chatID, n); err != nil {
		if errors.Is(err, engine.ErrAttemptsOutOfRange) {
			h.answerCallback(callback.ID, err.Error())
			return
		}
		logger.Log.Error("Error saving attempts", zap.Error(err))
		h.answerCallback(callback.ID, "Server error")
		return
	}

	h.answerCallback(callback.ID, "Saved")
	h.editMessage(callback, fmt.Sprintf("Attempts for %d = %d", chatID, n), backKeyboard(chatID))
}

func adminMenuKeyboard(chatID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Statistics", fmt.Sprintf("stats_%d", chatID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add question", fmt.Sprintf("addq_%d", chatID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔍 Questions", fmt.Sprintf("listq_%d", chatID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚙️ Attempts", fmt.Sprintf("att_%d", chatID)),
		),
	)
}

func backKeyboard(chatID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔙 Back", fmt.Sprintf("pick_%d", chatID)),
		),
	)
}

// callbackChatID extracts the chat id from "<prefix>_<chat>" data.
func callbackChatID(data string) (int64, error) {
	_, raw, found := strings.Cut(data, "_")
	if !found {
		return 0, fmt.Errorf("malformed callback data %q", data)
	}
	return strconv.ParseInt(raw, 10, 64)
}
