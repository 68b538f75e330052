package types

import (
	"time"
)

// Message kinds carried in the msg_type field.
const (
	MsgTypeText  = 1
	MsgTypeImage = 2
	MsgTypeVoice = 3
	MsgTypeFile  = 4
)

type User struct {
	Id       int    `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type Contact struct {
	Id         int        `json:"id"`
	UserId     int        `json:"user_id"`
	Name       string     `json:"name"`
	Avatar     string     `json:"avatar,omitempty"`
	Status     string     `json:"status"`
	Bio        string     `json:"bio,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
	IsFavorite bool       `json:"is_favorite"`
}

type Group struct {
	Id          int       `json:"id"`
	Name        string    `json:"name"`
	Avatar      string    `json:"avatar,omitempty"`
	OwnerId     int       `json:"owner_id"`
	Description string    `json:"description,omitempty"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

type GroupMember struct {
	Id       int       `json:"id"`
	UserId   int       `json:"user_id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
	Role     int       `json:"role"`
	JoinedAt time.Time `json:"joined_at,omitempty"`
}

type Message struct {
	Id         int       `json:"id"`
	SenderId   int       `json:"sender_id"`
	ReceiverId int       `json:"receiver_id"`
	Content    string    `json:"content"`
	MsgType    int       `json:"msg_type"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

// GroupMessage is the wire shape of a message posted to a group. Histories
// render private and group messages uniformly, see AsMessage.
type GroupMessage struct {
	Id        int       `json:"id"`
	SenderId  int       `json:"sender_id"`
	GroupId   int       `json:"group_id"`
	Content   string    `json:"content"`
	MsgType   int       `json:"msg_type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// AsMessage maps a group message onto the private message shape, with the
// group id standing in for the receiver id.
func (g GroupMessage) AsMessage() Message {
	return Message{
		Id:         g.Id,
		SenderId:   g.SenderId,
		ReceiverId: g.GroupId,
		Content:    g.Content,
		MsgType:    g.MsgType,
		IsRead:     g.IsRead,
		CreatedAt:  g.CreatedAt,
	}
}

// MessagePage is one page of a paginated history response.
type MessagePage struct {
	Items   []Message `json:"items"`
	HasMore bool      `json:"has_more"`
	LastId  int       `json:"last_id"`
}

type GroupMessagePage struct {
	Items   []GroupMessage `json:"items"`
	HasMore bool           `json:"has_more"`
	LastId  int            `json:"last_id"`
}

// SearchResult is one hit from the message search endpoint. ChatInfo carries
// either the peer fields (private) or the group fields, never both.
type SearchResult struct {
	MessageId int       `json:"message_id"`
	Content   string    `json:"content"`
	MsgType   int       `json:"msg_type"`
	CreatedAt time.Time `json:"created_at"`
	ChatType  string    `json:"chat_type"`
	Sender    User      `json:"sender"`
	ChatInfo  ChatInfo  `json:"chat_info"`
}

type ChatInfo struct {
	PeerUserId   int    `json:"peer_user_id,omitempty"`
	PeerUsername string `json:"peer_username,omitempty"`
	PeerAvatar   string `json:"peer_avatar,omitempty"`
	GroupId      int    `json:"group_id,omitempty"`
	GroupName    string `json:"group_name,omitempty"`
	GroupAvatar  string `json:"group_avatar,omitempty"`
}
