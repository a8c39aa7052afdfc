package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"quiz-gatekeeper/config"
	"quiz-gatekeeper/engine"
	"quiz-gatekeeper/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// BotHandler is the gateway between Telegram updates and the engines:
// it maps inbound events to engine calls and engine actions to API
// requests.
type BotHandler struct {
	bot      *tgbotapi.BotAPI
	cfg      *config.Config
	store    engine.Store
	verifier *engine.Verifier
	console  *engine.Console
}

func NewBotHandler(bot *tgbotapi.BotAPI, store engine.Store, cfg *config.Config) *BotHandler {
	return &BotHandler{
		bot:      bot,
		cfg:      cfg,
		store:    store,
		verifier: engine.NewVerifier(store, cfg, bot.Self.UserName),
		console:  engine.NewConsole(store, cfg),
	}
}

func (h *BotHandler) HandleUpdate(update tgbotapi.Update) {
	ctx := context.Background()

	switch {
	case update.ChatMember != nil:
		h.handleChatMember(ctx, update.ChatMember)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	}
}

func (h *BotHandler) handleChatMember(ctx context.Context, event *tgbotapi.ChatMemberUpdated) {
	if event.NewChatMember.Status != "member" {
		return
	}

	user := event.NewChatMember.User
	member := memberOf(user)

	logger.Log.Info("Member joined",
		zap.Int64("chat_id", event.Chat.ID),
		zap.Int64("user_id", user.ID),
	)

	actions, err := h.verifier.OnMemberJoined(ctx, event.Chat.ID, event.Chat.Title, member)
	if err != nil {
		logger.Log.Error("Error handling joined member", zap.Error(err))
		return
	}
	h.execute(actions)
}

func (h *BotHandler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.From == nil {
		return
	}

	if message.IsCommand() {
		h.handleCommand(ctx, message)
		return
	}

	if !message.Chat.IsPrivate() || message.Text == "" {
		return
	}

	member := memberOf(message.From)

	// An armed add-question slot takes the admin's next private
	// message, parsed or not.
	handled, reply, err := h.console.ConsumePending(ctx, message.From.ID, message.Text)
	if err != nil {
		logger.Log.Error("Error adding question", zap.Error(err))
		return
	}
	if handled {
		h.sendMessage(message.Chat.ID, reply)
		return
	}

	actions, err := h.verifier.SubmitAnswer(ctx, member, message.Text)
	if err != nil {
		logger.Log.Error("Error handling answer", zap.Error(err))
		return
	}
	h.execute(actions)
}

func (h *BotHandler) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		if message.Chat.IsPrivate() {
			h.handleStartCommand(ctx, message)
		}
	case "admin":
		h.handleAdminCommand(ctx, message)
	case "addadmin":
		if !message.Chat.IsPrivate() {
			h.handleAddAdminCommand(ctx, message)
		}
	}
}

func (h *BotHandler) handleStartCommand(ctx context.Context, message *tgbotapi.Message) {
	member := memberOf(message.From)

	chatID, err := strconv.ParseInt(message.CommandArguments(), 10, 64)
	if err != nil {
		// No deep-link payload: offer the list of known groups.
		groups, err := h.store.GroupsInfo(ctx)
		if err != nil {
			logger.Log.Error("Error listing groups", zap.Error(err))
			return
		}

		var rows [][]tgbotapi.InlineKeyboardButton
		for _, g := range groups {
			url := fmt.Sprintf("https://t.me/%s?start=%d", h.bot.Self.UserName, g.ChatID)
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(g.Title, url),
			))
		}

		msg := tgbotapi.NewMessage(message.Chat.ID, "Choose the group you want to be verified for:")
		if len(rows) > 0 {
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		}
		if _, err := h.bot.Send(msg); err != nil {
			logger.Log.Error("Error sending group list", zap.Error(err))
		}
		return
	}

	actions, err := h.verifier.StartSession(ctx, chatID, member)
	if err != nil {
		logger.Log.Error("Error starting session", zap.Error(err))
		return
	}
	h.execute(actions)
}

func (h *BotHandler) handleAdminCommand(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID

	if message.Chat.IsPrivate() {
		groups, err := h.store.GroupsInfo(ctx)
		if err != nil {
			logger.Log.Error("Error listing groups", zap.Error(err))
			return
		}

		var rows [][]tgbotapi.InlineKeyboardButton
		for _, g := range groups {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(g.Title, fmt.Sprintf("pick_%d", g.ChatID)),
			))
		}

		msg := tgbotapi.NewMessage(message.Chat.ID, "Choose a group:")
		if len(rows) > 0 {
			msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		}
		if _, err := h.bot.Send(msg); err != nil {
			logger.Log.Error("Error sending group picker", zap.Error(err))
		}
		return
	}

	chatID := message.Chat.ID
	ok, err := h.console.IsAdmin(ctx, chatID, userID)
	if err != nil {
		logger.Log.Error("Error checking admin", zap.Error(err))
		return
	}
	if !ok {
		h.sendMessage(chatID, "No access.")
		return
	}

	msg := tgbotapi.NewMessage(chatID, "Control panel:")
	msg.ReplyMarkup = adminMenuKeyboard(chatID)
	if _, err := h.bot.Send(msg); err != nil {
		logger.Log.Error("Error sending admin menu", zap.Error(err))
	}
}

func (h *BotHandler) handleAddAdminCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	caller := message.From.ID

	ok, err := h.console.IsAdmin(ctx, chatID, caller)
	if err != nil {
		logger.Log.Error("Error checking admin", zap.Error(err))
		return
	}
	if !ok {
		h.sendMessage(chatID, "You do not have permission.")
		return
	}

	arg := strings.TrimSpace(message.CommandArguments())
	userID, err := strconv.ParseInt(strings.TrimPrefix(arg, "@"), 10, 64)
	if err != nil {
		h.sendMessage(chatID, "Couldn't find that user: pass a numeric user id.")
		return
	}

	chatMember, err := h.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		h.sendMessage(chatID, "Couldn't find that user: "+err.Error())
		return
	}

	if err := h.console.AddAdmin(ctx, chatID, chatMember.User.ID); err != nil {
		logger.Log.Error("Error adding admin", zap.Error(err))
		return
	}

	h.sendMessage(chatID, fmt.Sprintf("%s is now an admin.", fullName(chatMember.User)))
}

func memberOf(user *tgbotapi.User) engine.Member {
	return engine.Member{
		ID:       user.ID,
		Username: user.UserName,
		FullName: fullName(user),
	}
}

func fullName(user *tgbotapi.User) string {
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}
