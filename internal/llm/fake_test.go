package llm

import (
	"context"
	"sync"
)

type fakeReply struct {
	text string
	err  error
}

// fakeCompleter replays scripted replies in order and records requests.
type fakeCompleter struct {
	mu       sync.Mutex
	replies  []fakeReply
	requests []CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.text, r.err
}
