package channel

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWorkerProxiesReads(t *testing.T) {
	reader := &mockReader{messages: map[int64][]RawMessage{
		-1: {offerMessage(-1, 1), offerMessage(-1, 2)},
	}}
	worker := NewWorker(reader)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	got, err := worker.ReadAfter(context.Background(), -1, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].MessageID != 2 {
		t.Fatalf("got %v, want only message 2", got)
	}
}

func TestWorkerPropagatesReaderError(t *testing.T) {
	wantErr := errors.New("flood wait")
	worker := NewWorker(&mockReader{err: wantErr})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	if _, err := worker.ReadAfter(context.Background(), -1, 0); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
}

func TestWorkerStopped(t *testing.T) {
	worker := NewWorker(&mockReader{})

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	cancel()
	<-worker.done

	if _, err := worker.ReadAfter(context.Background(), -1, 0); !errors.Is(err, ErrWorkerStopped) {
		t.Fatalf("err = %v, want ErrWorkerStopped", err)
	}
}

func TestWorkerReadHonoursCallerContext(t *testing.T) {
	worker := NewWorker(&mockReader{})
	// Run is never started: the request cannot be accepted.

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := worker.ReadAfter(ctx, -1, 0); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context.DeadlineExceeded", err)
	}
}
