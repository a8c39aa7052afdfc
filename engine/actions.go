package engine

// ActionKind enumerates the outbound effects an engine can request from
// the gateway.
type ActionKind int

const (
	// ActionSendMessage sends a plain message to a chat.
	ActionSendMessage ActionKind = iota
	// ActionGroupNotice sends a transient group message that the
	// gateway deletes after the configured delay.
	ActionGroupNotice
	// ActionRestrict revokes a member's send permissions.
	ActionRestrict
	// ActionUnrestrict restores a member's send permissions.
	ActionUnrestrict
	// ActionBan bans a member from the group.
	ActionBan
)

// Action is one outbound effect. Engines return actions instead of
// talking to the transport so the state machine stays testable.
type Action struct {
	Kind   ActionKind
	ChatID int64
	UserID int64
	Text   string
}

func sendTo(chatID int64, text string) Action {
	return Action{Kind: ActionSendMessage, ChatID: chatID, Text: text}
}

func notice(chatID int64, text string) Action {
	return Action{Kind: ActionGroupNotice, ChatID: chatID, Text: text}
}

func restrict(chatID, userID int64) Action {
	return Action{Kind: ActionRestrict, ChatID: chatID, UserID: userID}
}

func unrestrict(chatID, userID int64) Action {
	return Action{Kind: ActionUnrestrict, ChatID: chatID, UserID: userID}
}

func ban(chatID, userID int64) Action {
	return Action{Kind: ActionBan, ChatID: chatID, UserID: userID}
}
