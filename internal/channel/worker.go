package channel

import (
	"context"
	"errors"
)

// ErrWorkerStopped is returned for reads issued after the worker exits.
var ErrWorkerStopped = errors.New("channel reader worker stopped")

type readRequest struct {
	channelID      int64
	afterMessageID int64
	reply          chan readResult
}

type readResult struct {
	messages []RawMessage
	err      error
}

// Worker serializes access to a Reader whose underlying client is not safe
// for concurrent use. The client is touched only from the Run goroutine;
// callers submit reads over a channel and block on the reply.
type Worker struct {
	reader   Reader
	requests chan readRequest
	done     chan struct{}
}

// NewWorker wraps reader. Run must be started before ReadAfter is called.
func NewWorker(reader Reader) *Worker {
	return &Worker{
		reader:   reader,
		requests: make(chan readRequest),
		done:     make(chan struct{}),
	}
}

// Run owns the reader until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-w.requests:
			messages, err := w.reader.ReadAfter(ctx, req.channelID, req.afterMessageID)
			req.reply <- readResult{messages: messages, err: err}
		}
	}
}

// ReadAfter implements Reader by forwarding the call to the Run goroutine.
func (w *Worker) ReadAfter(ctx context.Context, channelID, afterMessageID int64) ([]RawMessage, error) {
	req := readRequest{
		channelID:      channelID,
		afterMessageID: afterMessageID,
		reply:          make(chan readResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.done:
		return nil, ErrWorkerStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.messages, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
