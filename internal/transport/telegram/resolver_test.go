package telegram

import (
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"riftbot/pkg/logx"
)

type fakeChatAPI struct {
	calls int
	err   error
}

func (f *fakeChatAPI) ChatByID(id int64) (*tele.Chat, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &tele.Chat{ID: id}, nil
}

func TestResolveCachesSuccess(t *testing.T) {
	t.Parallel()
	api := &fakeChatAPI{}
	r := NewResolver(api, logx.Nop())

	for i := 0; i < 3; i++ {
		chat, err := r.Resolve(-100)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if chat.ID != -100 {
			t.Fatalf("chat.ID = %d", chat.ID)
		}
	}
	if api.calls != 1 {
		t.Fatalf("api calls = %d, want 1 (cached)", api.calls)
	}
}

func TestResolveDoesNotCacheFailure(t *testing.T) {
	t.Parallel()
	api := &fakeChatAPI{err: errors.New("chat not found")}
	r := NewResolver(api, logx.Nop())

	if _, err := r.Resolve(-100); err == nil {
		t.Fatal("expected error")
	}
	if _, err := r.Resolve(-100); err == nil {
		t.Fatal("expected error")
	}
	if api.calls != 2 {
		t.Fatalf("api calls = %d, want 2 (failures not cached)", api.calls)
	}

	// The chat comes back; the next attempt succeeds and is then cached.
	api.err = nil
	if _, err := r.Resolve(-100); err != nil {
		t.Fatalf("Resolve after recovery: %v", err)
	}
	if _, err := r.Resolve(-100); err != nil {
		t.Fatalf("Resolve from cache: %v", err)
	}
	if api.calls != 3 {
		t.Fatalf("api calls = %d, want 3", api.calls)
	}
}

func TestResolveDistinctIDs(t *testing.T) {
	t.Parallel()
	api := &fakeChatAPI{}
	r := NewResolver(api, logx.Nop())
	if _, err := r.Resolve(1); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Resolve(2); err != nil {
		t.Fatal(err)
	}
	if api.calls != 2 {
		t.Fatalf("api calls = %d, want 2", api.calls)
	}
}

func TestIsThrottled(t *testing.T) {
	t.Parallel()
	fe := tele.FloodError{RetryAfter: 7}
	if !IsThrottled(fe) {
		t.Fatal("value FloodError not classified")
	}
	if !IsThrottled(&fe) {
		t.Fatal("pointer FloodError not classified")
	}
	if IsThrottled(errors.New("chat not found")) {
		t.Fatal("plain error misclassified as throttle")
	}
	if IsThrottled(nil) {
		t.Fatal("nil error classified as throttle")
	}
}

func TestFormatLeft(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want string
	}{
		{"90m", "1h 30m"},
		{"5m", "0h 5m"},
		{"0s", "0h 0m"},
		{"-10m", "0h 0m"},
		{"25h", "25h 0m"},
	}
	for _, tc := range cases {
		d, err := time.ParseDuration(tc.in)
		if err != nil {
			t.Fatal(err)
		}
		if got := formatLeft(d); got != tc.want {
			t.Errorf("formatLeft(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
