package shared

import (
	"sync"
	"testing"
)

func TestCitySetNotifies(t *testing.T) {
	c := NewCity("Pune")

	var got []string
	unsub := c.Subscribe(func(v string) { got = append(got, v) })

	if !c.Set("Mumbai") {
		t.Fatal("expected change")
	}
	if c.Set(" Mumbai ") {
		t.Error("same value after trim should not notify")
	}
	unsub()
	c.Set("Delhi")

	if len(got) != 1 || got[0] != "Mumbai" {
		t.Errorf("expected [Mumbai], got %v", got)
	}
	if c.Get() != "Delhi" {
		t.Errorf("expected Delhi, got %q", c.Get())
	}
}

func TestCityCallbackMayReenter(t *testing.T) {
	c := NewCity("")
	var seen string
	c.Subscribe(func(v string) { seen = c.Get() })

	c.Set("Chennai")
	if seen != "Chennai" {
		t.Errorf("expected callback to read Chennai, got %q", seen)
	}
}

func TestNilCity(t *testing.T) {
	var c *City
	if c.Get() != "" {
		t.Error("nil city should read empty")
	}
	c.Subscribe(func(string) {})()
}

func TestCityConcurrentSet(t *testing.T) {
	c := NewCity("")
	var mu sync.Mutex
	count := 0
	c.Subscribe(func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for _, v := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func(v string) {
			defer wg.Done()
			c.Set(v)
		}(v)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count == 0 || count > 4 {
		t.Errorf("unexpected notification count %d", count)
	}
}

func TestCityConcurrentSetLastNotificationMatchesGet(t *testing.T) {
	for run := 0; run < 200; run++ {
		c := NewCity("")
		var mu sync.Mutex
		last := ""
		c.Subscribe(func(v string) {
			mu.Lock()
			last = v
			mu.Unlock()
		})

		var wg sync.WaitGroup
		for _, v := range []string{"Pune", "Mumbai", "Delhi", "Chennai"} {
			wg.Add(1)
			go func(v string) {
				defer wg.Done()
				c.Set(v)
			}(v)
		}
		wg.Wait()

		mu.Lock()
		got := last
		mu.Unlock()
		if got != c.Get() {
			t.Fatalf("run %d: last notification %q, Get() = %q", run, got, c.Get())
		}
	}
}
