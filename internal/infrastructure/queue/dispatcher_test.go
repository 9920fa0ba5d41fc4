package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/apilogin/auth-api/internal/core/ports"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.Message
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, msg ports.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func TestDispatcher_DeliversBeforeClose(t *testing.T) {
	next := &recordingNotifier{}
	d := NewDispatcher(3, next, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 20; i++ {
		if err := d.Send(context.Background(), ports.Message{To: "alice@x.com", Subject: "s", HTML: string(rune('a' + i))}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}
	d.Close()

	if len(next.sent) != 20 {
		t.Fatalf("expected 20 delivered messages, got %d", len(next.sent))
	}
	for i, msg := range next.sent {
		if msg.HTML != string(rune('a'+i)) {
			t.Fatalf("expected per-recipient order preserved, message %d is %q", i, msg.HTML)
		}
	}
}

func TestDispatcher_SendAfterClose(t *testing.T) {
	d := NewDispatcher(1, &recordingNotifier{}, zerolog.Nop())
	d.Start(context.Background())
	d.Close()
	d.Close()

	if err := d.Send(context.Background(), ports.Message{To: "a@x.com"}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

type failingNotifier struct {
	recordingNotifier
	failSubject string
}

func (n *failingNotifier) Send(ctx context.Context, msg ports.Message) error {
	if msg.Subject == n.failSubject {
		return errors.New("smtp down")
	}
	return n.recordingNotifier.Send(ctx, msg)
}

func TestDispatcher_DeliveryFailureDoesNotStopWorker(t *testing.T) {
	next := &failingNotifier{failSubject: "first"}
	d := NewDispatcher(1, next, zerolog.Nop())
	d.Start(context.Background())

	if err := d.Send(context.Background(), ports.Message{To: "a@x.com", Subject: "first"}); err != nil {
		t.Fatalf("expected enqueue to succeed, got %v", err)
	}
	if err := d.Send(context.Background(), ports.Message{To: "a@x.com", Subject: "second"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	d.Close()

	if len(next.sent) != 1 || next.sent[0].Subject != "second" {
		t.Fatalf("expected only the second message delivered, got %+v", next.sent)
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(0, &recordingNotifier{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}

	first := d.shardIndex("alice@x.com")
	for i := 0; i < 10; i++ {
		if got := d.shardIndex("alice@x.com"); got != first {
			t.Fatalf("expected stable shard %d, got %d", first, got)
		}
	}
	if first < 0 || first >= defaultWorkers {
		t.Fatalf("shard out of range: %d", first)
	}
}

func TestDispatcher_SendHonoursContext(t *testing.T) {
	d := NewDispatcher(1, &recordingNotifier{}, zerolog.Nop())
	// no workers started, so the buffer fills
	for i := 0; i < channelBuffer; i++ {
		if err := d.Send(context.Background(), ports.Message{To: "a@x.com"}); err != nil {
			t.Fatalf("send %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.Send(ctx, ports.Message{To: "a@x.com"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
