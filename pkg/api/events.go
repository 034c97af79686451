// Package api holds the wire-level contract shared with clients: relay
// event names, the response envelope, and request/response DTOs.
package api

// Relay event names. These are part of the client contract and must not
// change spelling.
const (
	EventChatSendMessage EventName = "chat:send-message"
	EventChatNewMessage  EventName = "chat:new-message"
	EventChatTyping      EventName = "chat:typing"
	EventChatError       EventName = "chat:error"

	EventYariJoinQueue   EventName = "yari-connect:join-queue"
	EventYariLeaveQueue  EventName = "yari-connect:leave-queue"
	EventYariQueueJoined EventName = "yari-connect:queue-joined"
	EventYariQueueLeft   EventName = "yari-connect:queue-left"
	EventYariCallUser    EventName = "yari-connect:call-user"
	EventYariAnswerCall  EventName = "yari-connect:answer-call"
	EventYariICE         EventName = "yari-connect:ice-candidate"
	EventYariEndCall     EventName = "yari-connect:end-call"

	EventSessionJoin         EventName = "session:join"
	EventSessionLeave        EventName = "session:leave"
	EventSessionUpdateStatus EventName = "session:update-status"

	EventNotificationNew      EventName = "notification:new"
	EventNotificationMarkRead EventName = "notification:mark-read"
)

// EventName is a relay frame's event discriminator.
type EventName = string
