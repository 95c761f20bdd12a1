package logger

import (
	"sync"
	"time"
)

// Entry is one retained log record.
type Entry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
	Count   int                    `json:"count"`
	First   time.Time              `json:"first_seen"`
	Last    time.Time              `json:"last_seen"`
}

// Collector keeps a bounded window of recent warn/error entries so the
// operational API can serve them without a log backend. Repeated messages
// collapse into one entry with a counter.
type Collector struct {
	mu      sync.RWMutex
	max     int
	order   []string
	entries map[string]*Entry
}

func NewCollector(max int) *Collector {
	if max <= 0 {
		max = 100
	}
	return &Collector{
		max:     max,
		entries: make(map[string]*Entry),
	}
}

func (c *Collector) Add(level, msg string, fields map[string]interface{}) {
	now := time.Now()
	key := level + "|" + msg

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.Count++
		e.Last = now
		e.Fields = fields
		return
	}

	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
	c.order = append(c.order, key)
	c.entries[key] = &Entry{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Count:   1,
		First:   now,
		Last:    now,
	}
}

// Recent returns retained entries, oldest first.
func (c *Collector) Recent() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.order))
	for _, key := range c.order {
		if e, ok := c.entries[key]; ok {
			out = append(out, *e)
		}
	}
	return out
}
