// Package shared holds cross-screen context that several controllers read.
package shared

import (
	"strings"
	"sync"
)

// City is the current city shared by every screen. It is passed explicitly to
// each controller; changes are delivered to subscribers.
type City struct {
	notify sync.Mutex // serializes Set so subscribers see changes in store order
	mu     sync.Mutex
	value  string
	nextID int
	subs   map[int]func(string)
}

// NewCity creates a City holding initial.
func NewCity(initial string) *City {
	return &City{value: strings.TrimSpace(initial), subs: make(map[int]func(string))}
}

// Get returns the current city. A nil City reads as "".
func (c *City) Get() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Set changes the city and notifies subscribers. Setting the same value is a
// no-op. It reports whether the value changed.
//
// Concurrent calls are delivered one at a time, so the last notification
// always carries the value Get returns. Callbacks may call Get but must not
// call Set.
func (c *City) Set(v string) bool {
	v = strings.TrimSpace(v)
	c.notify.Lock()
	defer c.notify.Unlock()

	c.mu.Lock()
	if v == c.value {
		c.mu.Unlock()
		return false
	}
	c.value = v
	fns := make([]func(string), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	// Outside mu so callbacks may call Get.
	for _, fn := range fns {
		fn(v)
	}
	return true
}

// Subscribe registers fn for future changes and returns a func that removes it.
func (c *City) Subscribe(fn func(string)) (unsubscribe func()) {
	if c == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}
