package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattjoyce/msgwebhook/internal/message"
)

// Memory is an in-process Store. The map insert under the write lock is
// the insert-if-absent primitive.
type Memory struct {
	mu   sync.RWMutex
	byID map[string]message.Message
	now  func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]message.Message), now: time.Now}
}

func (m *Memory) Insert(ctx context.Context, msg message.Message) (InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[msg.ID]; ok {
		return Duplicate, nil
	}
	if msg.Text != nil {
		text := *msg.Text
		msg.Text = &text
	}
	msg.CreatedAt = m.now().UTC().Format(time.RFC3339Nano)
	m.byID[msg.ID] = msg
	return Created, nil
}

func (m *Memory) List(ctx context.Context, q ListQuery) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	q = q.Normalize()
	needle := strings.ToLower(q.Q)

	m.mu.RLock()
	matched := make([]message.Message, 0, len(m.byID))
	for _, msg := range m.byID {
		if q.From != "" && msg.FromMSISDN != q.From {
			continue
		}
		if q.Since != "" && msg.TS < q.Since {
			continue
		}
		if q.Q != "" && (msg.Text == nil || !strings.Contains(strings.ToLower(*msg.Text), needle)) {
			continue
		}
		matched = append(matched, msg)
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].TS != matched[j].TS {
			return matched[i].TS < matched[j].TS
		}
		return matched[i].ID < matched[j].ID
	})

	page := Page{Items: []message.Message{}, Total: len(matched), Limit: q.Limit, Offset: q.Offset}
	if q.Offset >= len(matched) {
		return page, nil
	}
	end := min(q.Offset+q.Limit, len(matched))
	page.Items = append(page.Items, matched[q.Offset:end]...)
	return page, nil
}

func (m *Memory) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Stats{TotalMessages: len(m.byID), TopSenders: []SenderCount{}}
	counts := make(map[string]int)
	for _, msg := range m.byID {
		counts[msg.FromMSISDN]++
		if st.FirstTS == nil || msg.TS < *st.FirstTS {
			ts := msg.TS
			st.FirstTS = &ts
		}
		if st.LastTS == nil || msg.TS > *st.LastTS {
			ts := msg.TS
			st.LastTS = &ts
		}
	}
	st.SendersCount = len(counts)

	for from, n := range counts {
		st.TopSenders = append(st.TopSenders, SenderCount{FromMSISDN: from, Count: n})
	}
	sort.Slice(st.TopSenders, func(i, j int) bool {
		if st.TopSenders[i].Count != st.TopSenders[j].Count {
			return st.TopSenders[i].Count > st.TopSenders[j].Count
		}
		return st.TopSenders[i].FromMSISDN < st.TopSenders[j].FromMSISDN
	})
	if len(st.TopSenders) > TopSenders {
		st.TopSenders = st.TopSenders[:TopSenders]
	}
	return st, nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close() error { return nil }
