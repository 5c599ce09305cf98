package log

const (
	// Session
	FieldRoomID    = "room_id"
	FieldChannelID = "channel_id"
	FieldEndpoint  = "endpoint"
	FieldState     = "state"

	// Wire
	FieldMethod    = "method"
	FieldEvent     = "event"
	FieldReplyID   = "reply_id"
	FieldMessageID = "message_id"

	// Actor
	FieldUserID   = "user_id"
	FieldUsername = "username"

	// Service
	FieldService = "service"
)
