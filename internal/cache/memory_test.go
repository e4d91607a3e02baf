package cache

import (
	"testing"
	"time"

	"github.com/cocosci/fishchain/internal/model"
)

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	want := model.CredibleInterval{Lower: 0.1, Upper: 0.7}

	key := Key("equal-tail", 0.4, 5)
	c.Set(key, want, 0)

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 item, got %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	key := Key("hdi", 0.5, 10)
	c.Set(key, model.CredibleInterval{Lower: 0.4, Upper: 0.6}, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get(key); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	c.Set("a", model.CredibleInterval{}, 0)
	c.Set("b", model.CredibleInterval{}, 0)

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected deleted key to miss")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d items", c.Len())
	}
}

func TestKey_Distinct(t *testing.T) {
	if Key("equal-tail", 0.4, 5) == Key("equal-tail", 0.4000000001, 5) {
		t.Error("expected nearby inputs to produce distinct keys")
	}
	if Key("equal-tail", 0.4, 5) == Key("hdi", 0.4, 5) {
		t.Error("expected policy name to be part of the key")
	}
	if Key("hdi", 0.25, 8) != Key("hdi", 0.25, 8) {
		t.Error("expected identical inputs to produce identical keys")
	}
}
