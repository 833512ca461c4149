package onebot

import "encoding/json"

// Event is one inbound OneBot v11 event. Only group messages are of
// interest; everything else is dropped by the gateway.
type Event struct {
	PostType    string `json:"post_type"`
	MessageType string `json:"message_type"`
	GroupID     int64  `json:"group_id"`
	UserID      int64  `json:"user_id"`
	RawMessage  string `json:"raw_message"`
	Sender      Sender `json:"sender"`
}

type Sender struct {
	UserID   int64  `json:"user_id"`
	Nickname string `json:"nickname"`
}

// From returns the sending user, preferring the sender block.
func (e *Event) From() int64 {
	if e.Sender.UserID != 0 {
		return e.Sender.UserID
	}
	return e.UserID
}

type apiResponse struct {
	Status  string          `json:"status"`
	RetCode int             `json:"retcode"`
	Data    json.RawMessage `json:"data"`
}

type sendGroupMsgRequest struct {
	GroupID int64  `json:"group_id"`
	Message string `json:"message"`
}
