// Package history fetches conversation history from the REST collaborator in
// reverse-chronological pages.
package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"resty.dev/v3"

	"github.com/ManDuong25/facebook-sub000/internal/timeline"
	"github.com/ManDuong25/facebook-sub000/internal/wire"
	"github.com/ManDuong25/facebook-sub000/pkg/logger"
)

// defaultTimeout is the per-request timeout for history fetches.
const defaultTimeout = 15 * time.Second

// ErrFetch marks a failed history page request. Already-merged pages are
// unaffected by a failed fetch.
var ErrFetch = errors.New("history fetch failed")

// ErrStale marks a response that was superseded by a newer request for the
// same conversation and must be discarded.
//
// In-flight fetches are not cancelled, and network arrival order is not
// reliable; a monotonic per-conversation generation makes the last request
// win regardless of which response lands first.
var ErrStale = errors.New("stale history response")

// Page is one fetched page, ready to merge.
type Page struct {
	// Messages holds the page's messages in ascending SentAt order (the
	// server's newest-first order is reversed here).
	Messages []timeline.Message
	// HasMore reports whether an older page exists. Callers stop requesting
	// further pages once it is false.
	HasMore bool
}

// Pager fetches history pages and guards against superseded responses.
type Pager struct {
	client   *resty.Client
	pageSize int

	mu   sync.Mutex
	gens map[string]uint64
}

// NewPager creates a pager against the server's REST API.
func NewPager(serverURL, token string, pageSize int) *Pager {
	client := resty.New().
		SetBaseURL(serverURL).
		SetAuthToken(token).
		SetTimeout(defaultTimeout)
	return &Pager{
		client:   client,
		pageSize: pageSize,
		gens:     make(map[string]uint64),
	}
}

// Close releases the underlying HTTP client.
func (p *Pager) Close() {
	_ = p.client.Close()
}

// FetchPage fetches one page of a conversation's history.
//
// pageIndex 0 is the newest page. Returns ErrStale when a newer FetchPage for
// the same conversation was issued while this one was in flight, and
// ErrFetch-wrapped errors for transport or HTTP failures.
func (p *Pager) FetchPage(ctx context.Context, conversationID string, pageIndex int) (Page, error) {
	gen := p.begin(conversationID)

	var body wire.HistoryPage
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("id", conversationID).
		SetQueryParam("page", strconv.Itoa(pageIndex)).
		SetQueryParam("size", strconv.Itoa(p.pageSize)).
		SetResult(&body).
		Get("/v1/conversations/{id}/messages")
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if resp.IsError() {
		return Page{}, fmt.Errorf("%w: server returned %s", ErrFetch, resp.Status())
	}

	if !p.isCurrent(conversationID, gen) {
		logger.Debugf("history: discarding stale page=%d for %s", pageIndex, conversationID)
		return Page{}, ErrStale
	}

	msgs := make([]timeline.Message, 0, len(body.Content))
	// The server returns newest-first; reverse into ascending order.
	for i := len(body.Content) - 1; i >= 0; i-- {
		hm := body.Content[i]
		msgs = append(msgs, timeline.Message{
			ServerID: hm.ID,
			SenderID: hm.SenderID,
			Content:  hm.Content,
			Type:     hm.Type,
			SentAt:   hm.SentAt,
			State:    timeline.StateConfirmed,
		})
	}

	logger.Debugf("history: fetched page=%d size=%d hasMore=%v for %s",
		pageIndex, len(msgs), !body.Last, conversationID)
	return Page{Messages: msgs, HasMore: !body.Last}, nil
}

// begin bumps and returns the request generation for a conversation.
func (p *Pager) begin(conversationID string) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gens[conversationID]++
	return p.gens[conversationID]
}

// isCurrent reports whether gen is still the newest request generation.
func (p *Pager) isCurrent(conversationID string, gen uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gens[conversationID] == gen
}
