package domain

// Frame types on the wire.
const (
	FrameMethod = "method"
	FrameReply  = "reply"
	FrameEvent  = "event"
)

// Method names the client invokes on the server.
const (
	MethodAuth    = "auth"
	MethodMsg     = "msg"
	MethodWhisper = "whisper"
	MethodHistory = "history"
)

// Event types broadcast by the server.
const (
	EventWelcome       = "WelcomeEvent"
	EventChatMessage   = "ChatMessage"
	EventUserJoin      = "UserJoin"
	EventUserLeave     = "UserLeave"
	EventDeleteMessage = "DeleteMessage"
	EventClearMessages = "ClearMessages"
	EventPurgeMessage  = "PurgeMessage"
)

// Field names in wire payloads. The server is inconsistent about the
// username key: chat message events use user_name, join events username.
const (
	FieldType      = "type"
	FieldEvent     = "event"
	FieldData      = "data"
	FieldMethod    = "method"
	FieldArguments = "arguments"
	FieldID        = "id"
	FieldError     = "error"
	FieldMessage   = "message"
	FieldMeta      = "meta"
	FieldMe        = "me"
	FieldWhisper   = "whisper"
	FieldText      = "text"
	FieldUserName  = "user_name"
	FieldUsername  = "username"
	FieldUserID    = "user_id"
	FieldUserLevel = "user_level"
	FieldEndpoints = "endpoints"
	FieldAuthKey   = "authkey"
)
