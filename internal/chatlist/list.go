package chatlist

import (
	"sort"
	"sync"
	"time"

	"github.com/voxchat/voxchat-client/internal/types"
)

// Entry kinds.
const (
	KindContact = "contact"
	KindGroup   = "group"
)

// Entry is one row of the conversation list. Preview fields are derived from
// the most recent of the fetched history and the push deltas, never taken
// from the entry resource itself.
type Entry struct {
	Kind        string
	Id          int
	Name        string
	Avatar      string
	Status      string
	IsFavorite  bool
	LastContent string
	LastMsgType int
	LastTime    time.Time
	Unread      int
}

// List holds the conversation list and reapplies its ordering discipline
// after every mutation: descending by last-message time, entries with no
// last message at the bottom.
type List struct {
	selfId int

	mu      sync.Mutex
	entries []Entry
}

func NewList(selfId int) *List {
	return &List{selfId: selfId}
}

// Replace swaps in a freshly fetched set of entries, preserving unread
// counters for entries that survived the reload.
func (l *List) Replace(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	type key struct {
		kind string
		id   int
	}
	unread := make(map[key]int, len(l.entries))
	for _, e := range l.entries {
		unread[key{e.Kind, e.Id}] = e.Unread
	}

	l.entries = make([]Entry, len(entries))
	copy(l.entries, entries)
	for i := range l.entries {
		if n, ok := unread[key{l.entries[i].Kind, l.entries[i].Id}]; ok {
			l.entries[i].Unread = n
		}
	}

	l.resortLocked()
}

// ApplyMessage folds one private message into the list. The preview of the
// matching contact is updated and the unread counter is incremented only for
// messages received from the contact, then the list is re-sorted.
func (l *List) ApplyMessage(msg types.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		e := &l.entries[i]
		if e.Kind != KindContact {
			continue
		}

		sentToContact := msg.SenderId == l.selfId && msg.ReceiverId == e.Id
		receivedFromContact := msg.SenderId == e.Id && msg.ReceiverId == l.selfId
		if !sentToContact && !receivedFromContact {
			continue
		}

		e.LastContent = msg.Content
		e.LastMsgType = msg.MsgType
		e.LastTime = msg.CreatedAt
		if receivedFromContact {
			e.Unread++
		}
	}

	l.resortLocked()
}

// ApplyGroupMessage folds one group message into the list.
func (l *List) ApplyGroupMessage(msg types.GroupMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		e := &l.entries[i]
		if e.Kind != KindGroup || e.Id != msg.GroupId {
			continue
		}

		e.LastContent = msg.Content
		e.LastMsgType = msg.MsgType
		e.LastTime = msg.CreatedAt
		if msg.SenderId != l.selfId {
			e.Unread++
		}
	}

	l.resortLocked()
}

// ReadReceipt zeroes the unread counter of the contact who acknowledged.
// Other entries are untouched and the ordering does not change.
func (l *List) ReadReceipt(readerId int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].Kind == KindContact && l.entries[i].Id == readerId {
			l.entries[i].Unread = 0
		}
	}
}

// ClearUnread zeroes the unread counter of one entry, used when the local
// user opens that conversation.
func (l *List) ClearUnread(kind string, id int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].Kind == kind && l.entries[i].Id == id {
			l.entries[i].Unread = 0
		}
	}
}

// SetStatus flips the presence flag of the matching contact. Presence never
// affects ordering.
func (l *List) SetStatus(userId int, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.entries {
		if l.entries[i].Kind == KindContact && l.entries[i].Id == userId {
			l.entries[i].Status = status
		}
	}
}

// SetOnlineBulk marks every listed user online, delivered once on connect.
func (l *List) SetOnlineBulk(userIds []int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	online := make(map[int]bool, len(userIds))
	for _, id := range userIds {
		online[id] = true
	}

	for i := range l.entries {
		if l.entries[i].Kind == KindContact && online[l.entries[i].Id] {
			l.entries[i].Status = "online"
		}
	}
}

// Entries returns a snapshot of the list in display order.
func (l *List) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// TotalUnread sums the unread counters across all entries.
func (l *List) TotalUnread() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int
	for _, e := range l.entries {
		n += e.Unread
	}
	return n
}

// resortLocked orders entries descending by last-message time. A zero
// LastTime compares before every real timestamp, which lands those entries
// at the bottom. The sort is stable so equal timestamps keep their order.
func (l *List) resortLocked() {
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].LastTime.After(l.entries[j].LastTime)
	})
}

// PreviewText renders the list preview for a message, substituting a
// placeholder for media kinds.
func PreviewText(content string, msgType int) string {
	switch msgType {
	case types.MsgTypeImage:
		return "[image]"
	case types.MsgTypeVoice:
		return "[voice]"
	case types.MsgTypeFile:
		return "[file]"
	default:
		return content
	}
}
