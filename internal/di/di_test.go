package di

import (
	"sync/atomic"
	"testing"
)

func TestContainerRegisterGet(t *testing.T) {
	c := NewContainer()
	c.Register("answer", 42)

	got, ok := c.Get("answer")
	if !ok || got.(int) != 42 {
		t.Errorf("Get(answer) = %v, %v; want 42, true", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("Get(missing) should report not found")
	}
}

func TestTokenLazyResolution(t *testing.T) {
	c := NewContainer()
	token := NewToken[*int]("test.counter")

	var calls atomic.Int32
	RegisterToken(c, token, func(sr ServiceRegistry) *int {
		calls.Add(1)
		v := 7
		return &v
	})

	if calls.Load() != 0 {
		t.Fatal("factory ran before first resolution")
	}

	first := GetToken(c, token)
	second := GetToken(c, token)

	if *first != 7 {
		t.Errorf("resolved value = %d, want 7", *first)
	}
	if first != second {
		t.Error("token resolution must memoize the instance")
	}
	if calls.Load() != 1 {
		t.Errorf("factory ran %d times, want 1", calls.Load())
	}
}

func TestRegisterValue(t *testing.T) {
	c := NewContainer()
	token := NewToken[string]("test.value")
	RegisterValue(c, token, "hello")

	if got := GetToken(c, token); got != "hello" {
		t.Errorf("GetToken = %q, want %q", got, "hello")
	}
}

func TestGetTokenPanicsOnMissing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("GetToken on unregistered token should panic")
		}
	}()
	GetToken(NewContainer(), NewToken[int]("test.missing"))
}
