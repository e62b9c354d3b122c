package food

import (
	"sync"

	"greenbite/domain"
)

// DraftBook holds one unsaved draft per user. Drafts live only in memory and
// are lost on restart.
type DraftBook struct {
	mu     sync.Mutex
	drafts map[string]domain.Draft
}

func NewDraftBook() *DraftBook {
	return &DraftBook{drafts: make(map[string]domain.Draft)}
}

// Get returns the draft of userID, or an empty draft.
func (b *DraftBook) Get(userID string) domain.Draft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drafts[userID]
}

// Mutate applies fn to the draft of userID under the lock and returns the
// result.
func (b *DraftBook) Mutate(userID string, fn func(d *domain.Draft)) domain.Draft {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.drafts[userID]
	fn(&d)
	b.drafts[userID] = d
	return d
}

func (b *DraftBook) Set(userID string, d domain.Draft) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drafts[userID] = d
}

func (b *DraftBook) Reset(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.drafts, userID)
}
