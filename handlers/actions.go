package handlers

import (
	"time"

	"quiz-gatekeeper/engine"
	"quiz-gatekeeper/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// DeleteTask is the handle of one scheduled message deletion. Deletion
// is best-effort and currently has no cancellation; the handle exists
// so a cancellation token can be added without changing callers.
type DeleteTask struct {
	ChatID    int64
	MessageID int
}

// execute performs the outbound actions an engine returned, in order.
func (h *BotHandler) execute(actions []engine.Action) {
	for _, action := range actions {
		switch action.Kind {
		case engine.ActionSendMessage:
			h.sendMessage(action.ChatID, action.Text)
		case engine.ActionGroupNotice:
			h.sendNotice(action.ChatID, action.Text)
		case engine.ActionRestrict:
			h.setMemberRestriction(action.ChatID, action.UserID, true)
		case engine.ActionUnrestrict:
			h.setMemberRestriction(action.ChatID, action.UserID, false)
		case engine.ActionBan:
			h.banMember(action.ChatID, action.UserID)
		}
	}
}

func (h *BotHandler) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.bot.Send(msg); err != nil {
		logger.Log.Error("Error sending message",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
	}
}

// sendNotice sends a transient group message and schedules its
// deletion.
func (h *BotHandler) sendNotice(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := h.bot.Send(msg)
	if err != nil {
		logger.Log.Error("Error sending notice",
			zap.Int64("chat_id", chatID),
			zap.Error(err),
		)
		return
	}
	h.scheduleDelete(chatID, sent.MessageID)
}

// scheduleDelete deletes the message after the configured delay.
// Failure is swallowed: the message may already be gone or the bot may
// have lost delete rights.
func (h *BotHandler) scheduleDelete(chatID int64, messageID int) *DeleteTask {
	task := &DeleteTask{ChatID: chatID, MessageID: messageID}

	go func() {
		time.Sleep(h.cfg.DeleteAfter)
		if _, err := h.bot.Request(tgbotapi.NewDeleteMessage(task.ChatID, task.MessageID)); err != nil {
			logger.Log.Debug("Delayed deletion failed",
				zap.Int64("chat_id", task.ChatID),
				zap.Int("message_id", task.MessageID),
				zap.Error(err),
			)
		}
	}()

	return task
}

func (h *BotHandler) setMemberRestriction(chatID, userID int64, restricted bool) {
	allowed := !restricted
	request := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       allowed,
			CanSendMediaMessages:  allowed,
			CanSendPolls:          allowed,
			CanSendOtherMessages:  allowed,
			CanAddWebPagePreviews: allowed,
			CanInviteUsers:        allowed,
		},
	}

	if _, err := h.bot.Request(request); err != nil {
		logger.Log.Error("Error restricting member",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
			zap.Bool("restricted", restricted),
			zap.Error(err),
		)
	}
}

func (h *BotHandler) banMember(chatID, userID int64) {
	request := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
	}

	if _, err := h.bot.Request(request); err != nil {
		logger.Log.Error("Error banning member",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}

func (h *BotHandler) editMessage(callback *tgbotapi.CallbackQuery, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		callback.Message.Chat.ID,
		callback.Message.MessageID,
		text,
		keyboard,
	)
	if _, err := h.bot.Send(edit); err != nil {
		logger.Log.Error("Error editing message", zap.Error(err))
	}
}

func (h *BotHandler) answerCallback(callbackID string, text string) {
	callbackConfig := tgbotapi.CallbackConfig{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       false,
	}

	if _, err := h.bot.Request(callbackConfig); err != nil {
		logger.Log.Error("Error answering callback", zap.Error(err))
	}
}
