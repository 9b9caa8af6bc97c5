package speech

import (
	"strconv"
	"testing"
)

func TestCache_PutGet(t *testing.T) {
	c := NewCache(3)
	c.Put("hello", "aura-luna-en", []byte("a"))
	if audio, ok := c.Get("hello", "aura-luna-en"); !ok || string(audio) != "a" {
		t.Fatalf("expected cached audio, got %q ok=%v", audio, ok)
	}
	if _, ok := c.Get("hello", "aura-zeus-en"); ok {
		t.Fatalf("different voice must be a distinct key")
	}
}

func TestCache_EvictsOldest(t *testing.T) {
	c := NewCache(3)
	for i := 0; i < 4; i++ {
		c.Put(strconv.Itoa(i), "v", []byte{byte(i)})
	}
	if _, ok := c.Get("0", "v"); ok {
		t.Fatalf("expected oldest entry evicted")
	}
	for i := 1; i < 4; i++ {
		if _, ok := c.Get(strconv.Itoa(i), "v"); !ok {
			t.Fatalf("expected entry %d retained", i)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("expected len 3, got %d", c.Len())
	}
}

func TestCache_RestoreDoesNotGrow(t *testing.T) {
	c := NewCache(2)
	c.Put("a", "v", []byte("1"))
	c.Put("a", "v", []byte("2"))
	if c.Len() != 1 {
		t.Fatalf("expected single entry after re-store, got %d", c.Len())
	}
	if audio, _ := c.Get("a", "v"); string(audio) != "2" {
		t.Fatalf("expected refreshed bytes, got %q", audio)
	}
}
