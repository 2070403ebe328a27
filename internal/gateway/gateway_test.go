package gateway

import (
	"context"
	"errors"
	"testing"
)

// exerciseGateway runs the behaviour every adapter must share.
func exerciseGateway(t *testing.T, g Gateway) {
	t.Helper()
	ctx := context.Background()

	if _, err := g.Get(ctx, UserDataKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty gateway: want ErrNotFound, got %v", err)
	}
	if err := g.Remove(ctx, UserDataKey); err != nil {
		t.Fatalf("Remove of absent key should succeed: %v", err)
	}

	first := []byte(`{"id":"u1","name":"Alice"}`)
	if err := g.Set(ctx, UserDataKey, first); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := g.Get(ctx, UserDataKey)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(first) {
		t.Fatalf("Get = %s, want %s", got, first)
	}

	second := []byte(`{"id":"u1","name":"Alice","location":"Metro"}`)
	if err := g.Set(ctx, UserDataKey, second); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, _ = g.Get(ctx, UserDataKey)
	if string(got) != string(second) {
		t.Fatalf("last write should win, got %s", got)
	}

	if err := g.Remove(ctx, UserDataKey); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := g.Get(ctx, UserDataKey); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after Remove: want ErrNotFound, got %v", err)
	}

	if err := g.Set(ctx, "", first); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("empty key: want ErrInvalidKey, got %v", err)
	}
}

func TestMemoryGateway(t *testing.T) {
	exerciseGateway(t, NewMemory())
}

func TestFileGateway(t *testing.T) {
	g, err := OpenFile(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	exerciseGateway(t, g)
}

func TestFileGatewaySurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	g, _ := OpenFile(dir)
	if err := g.Set(ctx, UserDataKey, []byte(`{"id":"u9"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	reopened, err := OpenFile(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := reopened.Get(ctx, UserDataKey)
	if err != nil || string(got) != `{"id":"u9"}` {
		t.Fatalf("reopened Get = %s, %v", got, err)
	}
}

func TestFileGatewayHonoursCancelledContext(t *testing.T) {
	g, _ := OpenFile(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Set(ctx, UserDataKey, []byte("{}")); !errors.Is(err, ErrWrite) || !errors.Is(err, context.Canceled) {
		t.Fatalf("want ErrWrite wrapping context.Canceled, got %v", err)
	}
}

func TestMemoryFaultInjection(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	boom := errors.New("disk full")

	g.FailSet(boom)
	err := g.Set(ctx, UserDataKey, []byte("{}"))
	if !errors.Is(err, ErrWrite) || !errors.Is(err, boom) {
		t.Fatalf("want ErrWrite wrapping cause, got %v", err)
	}
	if g.Len() != 0 || g.Sets() != 0 {
		t.Fatal("failed Set must not store anything")
	}
	g.FailSet(nil)

	_ = g.Set(ctx, UserDataKey, []byte("{}"))
	g.FailGet(boom)
	if _, err := g.Get(ctx, UserDataKey); !errors.Is(err, ErrRead) {
		t.Fatalf("want ErrRead, got %v", err)
	}
	g.FailRemove(boom)
	if err := g.Remove(ctx, UserDataKey); !errors.Is(err, ErrWrite) {
		t.Fatalf("want ErrWrite, got %v", err)
	}
	if g.Len() != 1 {
		t.Fatal("failed Remove must keep the record")
	}
}
