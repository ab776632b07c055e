// Package mock provides a scripted [llm.Provider] for tests.
//
// A Provider answers from, in order of precedence: CompleteFunc, the queued
// Replies, and finally the fixed CompleteResponse/CompleteErr pair. Every
// request is recorded.
//
//	p := &mock.Provider{Replies: []mock.Reply{
//	    {Err: errors.New("503")},
//	    {Content: `{"scores": {...}}`},
//	}}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/glyphfix/pkg/provider/llm"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Reply is one scripted answer.
type Reply struct {
	Content string
	Err     error
}

// Provider is a recording, scripted [llm.Provider].
type Provider struct {
	// CompleteFunc, if set, answers every call. It receives the 1-based call
	// number.
	CompleteFunc func(call int, req llm.CompletionRequest) (*llm.CompletionResponse, error)

	// Replies are consumed one per call before the fixed answer is used.
	Replies []Reply

	// CompleteResponse and CompleteErr are the fixed answer.
	CompleteResponse *llm.CompletionResponse
	CompleteErr      error

	mu     sync.Mutex
	calls  []CompleteCall
	served int
}

var _ llm.Provider = (*Provider)(nil)

// Complete records the call and returns the scripted answer.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, CompleteCall{Ctx: ctx, Req: req})
	n := len(p.calls)
	if p.CompleteFunc != nil {
		fn := p.CompleteFunc
		p.mu.Unlock()
		return fn(n, req)
	}
	if p.served < len(p.Replies) {
		r := p.Replies[p.served]
		p.served++
		p.mu.Unlock()
		if r.Err != nil {
			return nil, r.Err
		}
		return &llm.CompletionResponse{Content: r.Content}, nil
	}
	resp, err := p.CompleteResponse, p.CompleteErr
	p.mu.Unlock()
	return resp, err
}

// Calls returns a copy of the recorded calls.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CompleteCall(nil), p.calls...)
}

// Prompts returns the content of the last message of every recorded request.
func (p *Provider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.calls))
	for _, c := range p.calls {
		if msgs := c.Req.Messages; len(msgs) > 0 {
			out = append(out, msgs[len(msgs)-1].Content)
		}
	}
	return out
}

// Reset forgets recorded calls and rewinds the reply queue.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
	p.served = 0
}
