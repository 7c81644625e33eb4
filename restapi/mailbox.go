package restapi

import (
	"sync"

	"github.com/rookdaemon/agora/envelope"
	"github.com/rookdaemon/agora/relayclient"
)

// mailboxEntry is the wire shape returned by GET /messages.
type mailboxEntry struct {
	From     string             `json:"from"`
	FromName string             `json:"fromName,omitempty"`
	Envelope *envelope.Envelope `json:"envelope"`
}

// mailbox is a bounded ring buffer: once full, the oldest undelivered
// message is dropped to make room for the newest.
type mailbox struct {
	mu   sync.Mutex
	buf  []mailboxEntry
	size int
}

func newMailbox(size int) *mailbox {
	return &mailbox{buf: make([]mailboxEntry, 0, size), size: size}
}

func (m *mailbox) push(msg relayclient.InboundMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := mailboxEntry{From: msg.From, FromName: msg.FromName, Envelope: msg.Envelope}
	if len(m.buf) >= m.size {
		m.buf = m.buf[1:]
	}
	m.buf = append(m.buf, entry)
}

func (m *mailbox) drain() []mailboxEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.buf
	m.buf = make([]mailboxEntry, 0, m.size)
	return out
}
