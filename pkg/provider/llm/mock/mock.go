// Package mock provides a scripted llm.Provider for tests.
//
// Answers come, in order of precedence, from Replies (consumed one per
// call), CompleteFunc, and finally CompleteResponse with CompleteErr:
//
//	p := &mock.Provider{Replies: []mock.Reply{
//		{Response: &llm.CompletionResponse{Content: `{"corrections":[]}`}},
//		{Err: errors.New("503 service unavailable")},
//	}}
//
// Configure a Provider before its first call; it is safe for concurrent
// use afterwards.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/revisa/pkg/provider/llm"
)

// CompleteCall is one recorded call of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Reply is one scripted answer.
type Reply struct {
	Response *llm.CompletionResponse
	Err      error
}

// Provider is a scripted llm.Provider.
type Provider struct {
	Replies          []Reply
	CompleteFunc     func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	CompleteResponse *llm.CompletionResponse
	CompleteErr      error

	// TokenCount and CountTokensErr are returned by CountTokens.
	TokenCount     int
	CountTokensErr error

	// ModelCapabilities is returned by Capabilities.
	ModelCapabilities llm.ModelCapabilities

	mu    sync.Mutex
	next  int
	calls []CompleteCall
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.calls = append(p.calls, CompleteCall{Ctx: ctx, Req: req})
	if p.next < len(p.Replies) {
		r := p.Replies[p.next]
		p.next++
		p.mu.Unlock()
		return r.Response, r.Err
	}
	p.mu.Unlock()

	if p.CompleteFunc != nil {
		return p.CompleteFunc(ctx, req)
	}
	return p.CompleteResponse, p.CompleteErr
}

// CountTokens implements llm.Provider.
func (p *Provider) CountTokens([]llm.Message) (int, error) {
	return p.TokenCount, p.CountTokensErr
}

// Capabilities implements llm.Provider.
func (p *Provider) Capabilities() llm.ModelCapabilities {
	return p.ModelCapabilities
}

// Calls returns a copy of the recorded Complete calls.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]CompleteCall(nil), p.calls...)
}

// Remaining returns the number of unused Replies.
func (p *Provider) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Replies) - p.next
}

var _ llm.Provider = (*Provider)(nil)
