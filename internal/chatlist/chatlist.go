package chatlist

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/voxchat/voxchat-client/internal/api"
	"github.com/voxchat/voxchat-client/internal/transport"
	"github.com/voxchat/voxchat-client/internal/types"
)

// Inbound chat-domain events.
const (
	eventNewMessage       = "new_message"
	eventNewGroupMessage  = "new_group_message"
	eventReadReceipt      = "read_receipt"
	eventUserOnline       = "user_online"
	eventUserOffline      = "user_offline"
	eventOnlineUsers      = "online_users"
	eventGroupMemberAdded = "group_member_added"
	eventGroupListUpdate  = "group_list_update"
)

// Events is the slice of the transport the reconciler consumes.
type Events interface {
	On(eventType string, fn transport.HandlerFunc) *transport.Subscription
	Off(sub *transport.Subscription)
	Trigger(eventType string, data any)
}

// Directory is the REST surface snapshots are loaded through. Implemented
// by api.Client.
type Directory interface {
	Contacts(ctx context.Context) ([]types.Contact, error)
	Groups(ctx context.Context) ([]types.Group, error)
	History(ctx context.Context, peerId int) (types.MessagePage, error)
	GroupMessages(ctx context.Context, groupId int) (types.GroupMessagePage, error)
	MarkRead(ctx context.Context, peerId int) error
	SendMessage(ctx context.Context, body api.SendMessageBody) (types.Message, error)
	SendGroupMessage(ctx context.Context, groupId int, content string, msgType int) (types.GroupMessage, error)
}

// Manager reconciles the conversation list and the open conversation
// history against REST snapshots and push deltas.
type Manager struct {
	rest Directory
	ts   Events
	log  *log.Logger
	self types.User

	list *List

	mu     sync.Mutex
	active *History
	subs   []*transport.Subscription

	onChange func()
}

func NewManager(rest Directory, ts Events, self types.User, logger *log.Logger) *Manager {
	return &Manager{
		rest: rest,
		ts:   ts,
		log:  logger,
		self: self,
		list: NewList(self.Id),
	}
}

// SetOnChange registers a callback fired after every list or history
// mutation, for the rendering layer to refresh from.
func (m *Manager) SetOnChange(fn func()) {
	m.onChange = fn
}

// Start subscribes to the chat-domain push events.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.subs = []*transport.Subscription{
		m.ts.On(eventNewMessage, m.handleNewMessage),
		m.ts.On(eventNewGroupMessage, m.handleNewGroupMessage),
		m.ts.On(eventGroupListUpdate, m.handleNewGroupMessage),
		m.ts.On(eventReadReceipt, m.handleReadReceipt),
		m.ts.On(eventUserOnline, m.handleUserOnline),
		m.ts.On(eventUserOffline, m.handleUserOffline),
		m.ts.On(eventOnlineUsers, m.handleOnlineUsers),
		m.ts.On(eventGroupMemberAdded, m.handleGroupMemberAdded),
	}
}

func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sub := range m.subs {
		m.ts.Off(sub)
	}
	m.subs = nil
}

// List exposes the conversation list.
func (m *Manager) List() *List {
	return m.list
}

// Load fetches contacts and groups and derives each entry's preview from
// the most recent message of its history. The assembled set replaces the
// list wholesale.
func (m *Manager) Load(ctx context.Context) error {
	contacts, err := m.rest.Contacts(ctx)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}

	groups, err := m.rest.Groups(ctx)
	if err != nil {
		return fmt.Errorf("load groups: %w", err)
	}

	entries := make([]Entry, 0, len(contacts)+len(groups))
	for _, c := range contacts {
		e := Entry{
			Kind:       KindContact,
			Id:         c.UserId,
			Name:       c.Name,
			Avatar:     c.Avatar,
			Status:     c.Status,
			IsFavorite: c.IsFavorite,
		}

		page, err := m.rest.History(ctx, c.UserId)
		if err != nil {
			m.log.Printf("load history for contact %d: %s", c.UserId, err)
		} else if last, ok := latestMessage(page.Items); ok {
			e.LastContent = last.Content
			e.LastMsgType = last.MsgType
			e.LastTime = last.CreatedAt
		}

		entries = append(entries, e)
	}

	for _, g := range groups {
		e := Entry{
			Kind:   KindGroup,
			Id:     g.Id,
			Name:   g.Name,
			Avatar: g.Avatar,
		}

		page, err := m.rest.GroupMessages(ctx, g.Id)
		if err != nil {
			m.log.Printf("load messages for group %d: %s", g.Id, err)
		} else if last, ok := latestGroupMessage(page.Items); ok {
			e.LastContent = last.Content
			e.LastMsgType = last.MsgType
			e.LastTime = last.CreatedAt
		}

		entries = append(entries, e)
	}

	m.list.Replace(entries)
	m.stateChanged()
	return nil
}

// Open fetches the conversation's history, replaces any previously open one
// and marks the conversation read.
func (m *Manager) Open(ctx context.Context, kind string, peerId int) error {
	h := NewHistory(kind, peerId, m.self.Id)

	switch kind {
	case KindContact:
		page, err := m.rest.History(ctx, peerId)
		if err != nil {
			return fmt.Errorf("fetch history: %w", err)
		}
		h.Replace(page.Items)
	case KindGroup:
		page, err := m.rest.GroupMessages(ctx, peerId)
		if err != nil {
			return fmt.Errorf("fetch group messages: %w", err)
		}
		msgs := make([]types.Message, len(page.Items))
		for i, gm := range page.Items {
			msgs[i] = gm.AsMessage()
		}
		h.Replace(msgs)
	default:
		return fmt.Errorf("unknown conversation kind %q", kind)
	}

	m.mu.Lock()
	m.active = h
	m.mu.Unlock()

	m.list.ClearUnread(kind, peerId)
	if kind == KindContact {
		go m.markRead(peerId)
	}

	m.stateChanged()
	return nil
}

// CloseConversation drops the open history. Push events keep updating the
// list.
func (m *Manager) CloseConversation() {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
}

// Messages returns the open conversation's sequence, nil when none is open.
func (m *Manager) Messages() []types.Message {
	m.mu.Lock()
	h := m.active
	m.mu.Unlock()

	if h == nil {
		return nil
	}
	return h.Messages()
}

// Send posts a message to the open conversation. The history gets an
// optimistic placeholder immediately; the placeholder is swapped for the
// server's copy when the REST call resolves, or removed when it fails.
func (m *Manager) Send(ctx context.Context, content string, msgType int) error {
	m.mu.Lock()
	h := m.active
	m.mu.Unlock()

	if h == nil {
		return fmt.Errorf("no open conversation")
	}
	if msgType == 0 {
		msgType = types.MsgTypeText
	}

	local := types.Message{
		SenderId:   m.self.Id,
		ReceiverId: h.PeerId(),
		Content:    content,
		MsgType:    msgType,
	}
	key := h.AppendLocal(local)
	m.stateChanged()

	var msg types.Message
	var err error
	if h.Kind() == KindGroup {
		var gm types.GroupMessage
		gm, err = m.rest.SendGroupMessage(ctx, h.PeerId(), content, msgType)
		msg = gm.AsMessage()
	} else {
		msg, err = m.rest.SendMessage(ctx, api.SendMessageBody{
			ReceiverId: h.PeerId(),
			Content:    content,
			MsgType:    msgType,
		})
	}
	if err != nil {
		h.Resolve(key, nil)
		m.stateChanged()
		return err
	}

	h.Resolve(key, &msg)
	m.list.ApplyMessage(msg)
	m.stateChanged()
	return nil
}

func (m *Manager) handleNewMessage(data []byte) {
	var msg types.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		m.log.Printf("malformed new_message payload: %s", err)
		return
	}

	m.list.ApplyMessage(msg)

	m.mu.Lock()
	h := m.active
	m.mu.Unlock()

	if h != nil && h.Kind() == KindContact && h.Matches(msg) {
		h.Append(msg)
		if msg.SenderId == h.PeerId() {
			go m.markRead(h.PeerId())
			m.list.ClearUnread(KindContact, h.PeerId())
		}
	}

	m.stateChanged()
}

func (m *Manager) handleNewGroupMessage(data []byte) {
	var msg types.GroupMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		m.log.Printf("malformed group message payload: %s", err)
		return
	}

	m.list.ApplyGroupMessage(msg)

	m.mu.Lock()
	h := m.active
	m.mu.Unlock()

	if h != nil && h.Kind() == KindGroup && h.PeerId() == msg.GroupId {
		h.Append(msg.AsMessage())
		m.list.ClearUnread(KindGroup, msg.GroupId)
	}

	m.stateChanged()
}

func (m *Manager) handleReadReceipt(data []byte) {
	var payload struct {
		ReaderId int `json:"reader_id"`
		Count    int `json:"count"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		m.log.Printf("malformed read_receipt payload: %s", err)
		return
	}

	m.list.ReadReceipt(payload.ReaderId)

	m.mu.Lock()
	h := m.active
	m.mu.Unlock()

	if h != nil && h.Kind() == KindContact && h.PeerId() == payload.ReaderId {
		h.MarkRead(payload.ReaderId)
	}

	m.stateChanged()
}

func (m *Manager) handleUserOnline(data []byte) {
	if id, ok := parseUserId(data); ok {
		m.list.SetStatus(id, "online")
		m.stateChanged()
	}
}

func (m *Manager) handleUserOffline(data []byte) {
	if id, ok := parseUserId(data); ok {
		m.list.SetStatus(id, "offline")
		m.stateChanged()
	}
}

func (m *Manager) handleOnlineUsers(data []byte) {
	var payload struct {
		UserIds []int `json:"user_ids"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		m.log.Printf("malformed online_users payload: %s", err)
		return
	}

	m.list.SetOnlineBulk(payload.UserIds)
	m.stateChanged()
}

// handleGroupMemberAdded refreshes the list so a group the local user was
// just added to shows up.
func (m *Manager) handleGroupMemberAdded(data []byte) {
	go func() {
		if err := m.Load(context.Background()); err != nil {
			m.log.Printf("refresh after group membership change: %s", err)
		}
	}()
}

// markRead acknowledges the peer's messages and nudges the unread badge.
// The backend only forwards the read receipt to the peer, so the local
// refresh is triggered here.
func (m *Manager) markRead(peerId int) {
	if err := m.rest.MarkRead(context.Background(), peerId); err != nil {
		m.log.Printf("mark read for peer %d: %s", peerId, err)
		return
	}
	m.ts.Trigger(transport.EventUnreadUpdate, nil)
}

func (m *Manager) stateChanged() {
	if m.onChange != nil {
		m.onChange()
	}
}

func parseUserId(data []byte) (int, bool) {
	var payload struct {
		UserId int `json:"user_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return 0, false
	}
	return payload.UserId, true
}

func latestMessage(msgs []types.Message) (types.Message, bool) {
	var last types.Message
	var found bool
	for _, m := range msgs {
		if !found || m.CreatedAt.After(last.CreatedAt) {
			last, found = m, true
		}
	}
	return last, found
}

func latestGroupMessage(msgs []types.GroupMessage) (types.GroupMessage, bool) {
	var last types.GroupMessage
	var found bool
	for _, m := range msgs {
		if !found || m.CreatedAt.After(last.CreatedAt) {
			last, found = m, true
		}
	}
	return last, found
}
