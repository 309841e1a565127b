package chat

import "sync"

// convLocks serialises read-modify-write cycles per conversation. Two
// concurrent writers to the same conversation would otherwise both read the
// pre-mutation list and overwrite each other's change on write-back.
// Operations on different conversations never contend.
type convLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newConvLocks() *convLocks {
	return &convLocks{locks: make(map[int64]*sync.Mutex)}
}

func (c *convLocks) lock(conversationID int64) func() {
	c.mu.Lock()
	l, ok := c.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[conversationID] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}
