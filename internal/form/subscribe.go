package form

import "github.com/iconidentify/mediaslayer/internal/domain"

// subscriberBuffer bounds how far a slow subscriber can lag before
// snapshots are dropped for it.
const subscriberBuffer = 64

// Subscribe registers for state snapshots. The current snapshot is
// delivered first. The caller must call Unsubscribe when done; the channel
// is closed by Unsubscribe or Close.
func (f *Form) Subscribe() (uint64, <-chan domain.FormSnapshot) {
	ch := make(chan domain.FormSnapshot, subscriberBuffer)

	f.subMu.Lock()
	defer f.subMu.Unlock()

	f.mu.Lock()
	closed := f.closed
	ch <- f.snapshotLocked()
	f.mu.Unlock()

	if closed {
		close(ch)
		return 0, ch
	}

	f.subSeq++
	id := f.subSeq
	f.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (f *Form) Unsubscribe(id uint64) {
	f.subMu.Lock()
	defer f.subMu.Unlock()

	if ch, ok := f.subscribers[id]; ok {
		close(ch)
		delete(f.subscribers, id)
	}
}

// SubscriberCount returns the number of active subscribers.
func (f *Form) SubscriberCount() int {
	f.subMu.RLock()
	defer f.subMu.RUnlock()
	return len(f.subscribers)
}

func (f *Form) notify(snap domain.FormSnapshot) {
	f.subMu.RLock()
	defer f.subMu.RUnlock()

	for id, ch := range f.subscribers {
		select {
		case ch <- snap:
		default:
			f.logger.Warn("subscriber buffer full, dropping snapshot", "subscriber_id", id)
		}
	}
}
