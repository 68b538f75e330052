package chatlist

import (
	"sort"
	"sync"

	"github.com/teris-io/shortid"
	"github.com/voxchat/voxchat-client/internal/types"
)

// historyItem pairs a message with the local key assigned to optimistic
// appends. The key lets the REST response for a send overwrite the
// placeholder instead of duplicating it.
type historyItem struct {
	msg      types.Message
	localKey string
}

// History is the ordered message sequence of one open conversation. A REST
// fetch replaces the sequence wholesale; push events append to it when they
// belong to the open peer or group.
type History struct {
	kind   string
	peerId int
	selfId int

	mu    sync.Mutex
	items []historyItem
}

func NewHistory(kind string, peerId, selfId int) *History {
	return &History{kind: kind, peerId: peerId, selfId: selfId}
}

func (h *History) Kind() string { return h.kind }
func (h *History) PeerId() int  { return h.peerId }

// Replace installs a freshly fetched snapshot, sorted ascending by creation
// time. Push events that arrived while the fetch was in flight are
// superseded; the fetch result is authoritative.
func (h *History) Replace(msgs []types.Message) {
	sorted := make([]types.Message, len(msgs))
	copy(sorted, msgs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	items := make([]historyItem, len(sorted))
	for i, m := range sorted {
		items[i] = historyItem{msg: m}
	}

	h.mu.Lock()
	h.items = items
	h.mu.Unlock()
}

// Matches reports whether a private message belongs to this conversation.
func (h *History) Matches(msg types.Message) bool {
	if h.kind == KindGroup {
		return msg.ReceiverId == h.peerId
	}
	return msg.SenderId == h.peerId || msg.ReceiverId == h.peerId
}

// Append adds a pushed message to the sequence. A message whose id is
// already present is dropped: the backend echoes sent messages back over the
// transport and the REST response has usually landed first.
func (h *History) Append(msg types.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.containsLocked(msg.Id) {
		return false
	}

	h.items = append(h.items, historyItem{msg: msg})
	return true
}

// AppendLocal adds an optimistic placeholder for a message the local user
// just sent, before the REST call resolves. The returned key is handed to
// Resolve once the server copy is known.
func (h *History) AppendLocal(msg types.Message) string {
	key := shortid.MustGenerate()

	h.mu.Lock()
	h.items = append(h.items, historyItem{msg: msg, localKey: key})
	h.mu.Unlock()

	return key
}

// Resolve replaces the optimistic placeholder with the server's copy, or
// removes it when the send failed. When the websocket echo landed before the
// REST response the id is already present, so the placeholder is removed
// rather than duplicated.
func (h *History) Resolve(key string, msg *types.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.items {
		if h.items[i].localKey != key {
			continue
		}

		if msg == nil || h.containsLocked(msg.Id) {
			h.items = append(h.items[:i], h.items[i+1:]...)
		} else {
			h.items[i] = historyItem{msg: *msg}
		}
		return
	}
}

func (h *History) containsLocked(id int) bool {
	if id == 0 {
		return false
	}
	for _, it := range h.items {
		if it.msg.Id == id {
			return true
		}
	}
	return false
}

// MarkRead flips is_read on the messages the given reader acknowledged,
// meaning everything the local user sent to them.
func (h *History) MarkRead(readerId int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range h.items {
		if h.items[i].msg.ReceiverId == readerId {
			h.items[i].msg.IsRead = true
		}
	}
}

// Messages returns the sequence in display order.
func (h *History) Messages() []types.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]types.Message, len(h.items))
	for i, it := range h.items {
		out[i] = it.msg
	}
	return out
}
