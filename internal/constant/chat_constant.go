package constant

const (
	ChatMessageRoleUser = "user"
	ChatMessageRoleBot  = "bot"

	ChatRatingDown = 0
	ChatRatingUp   = 1

	// Realtime event names shared with the widget
	ChatEventJoin     = "join"
	ChatEventBotReply = "bot_reply"
	ChatEventTyping   = "typing"

	ChatReplyStatusQueued = "queued"

	ChatSessionIdMaxLength = 128

	ChatFallbackReply = "Thanks for reaching out! We couldn't prepare an answer right now, a member of our team will follow up shortly."

	ChatDefaultSystemPrompt = `You are the support assistant embedded in a website chat widget.
Answer the visitor's latest question briefly and politely, in the visitor's language.
If you do not know the answer, say so and offer to connect them with a human agent.
Never invent prices, policies or order details.`
)
