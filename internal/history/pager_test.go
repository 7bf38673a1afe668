package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManDuong25/facebook-sub000/internal/wire"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writePage(t *testing.T, w http.ResponseWriter, page wire.HistoryPage) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(page))
}

func TestFetchPage_ReversesIntoAscendingOrder(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/conversations/77/messages", r.URL.Path)
		require.Equal(t, "0", r.URL.Query().Get("page"))
		require.Equal(t, "20", r.URL.Query().Get("size"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writePage(t, w, wire.HistoryPage{
			Content: []wire.HistoryMessage{
				{ID: "m3", SenderID: "1", Content: "newest", Type: "TEXT", SentAt: 3000},
				{ID: "m2", SenderID: "2", Content: "middle", Type: "TEXT", SentAt: 2000},
				{ID: "m1", SenderID: "1", Content: "oldest", Type: "TEXT", SentAt: 1000},
			},
			Last: false,
		})
	})

	p := NewPager(srv.URL, "tok", 20)
	defer p.Close()

	page, err := p.FetchPage(context.Background(), "77", 0)
	require.NoError(t, err)
	require.True(t, page.HasMore)
	require.Len(t, page.Messages, 3)
	require.Equal(t, "m1", page.Messages[0].ServerID)
	require.Equal(t, "m2", page.Messages[1].ServerID)
	require.Equal(t, "m3", page.Messages[2].ServerID)
}

func TestFetchPage_LastPageHasNoMore(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, wire.HistoryPage{
			Content: []wire.HistoryMessage{
				{ID: "m1", SenderID: "1", Content: "only", Type: "TEXT", SentAt: 1000},
			},
			Last: true,
		})
	})

	p := NewPager(srv.URL, "tok", 20)
	defer p.Close()

	page, err := p.FetchPage(context.Background(), "77", 4)
	require.NoError(t, err)
	require.False(t, page.HasMore)
}

func TestFetchPage_ServerErrorWrapsErrFetch(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	p := NewPager(srv.URL, "tok", 20)
	defer p.Close()

	_, err := p.FetchPage(context.Background(), "77", 0)
	require.ErrorIs(t, err, ErrFetch)
}

func TestFetchPage_UnreachableServerWrapsErrFetch(t *testing.T) {
	t.Parallel()

	p := NewPager("http://127.0.0.1:1", "tok", 20)
	defer p.Close()

	_, err := p.FetchPage(context.Background(), "77", 0)
	require.ErrorIs(t, err, ErrFetch)
}

func TestFetchPage_SupersededResponseIsStale(t *testing.T) {
	t.Parallel()

	// The first request blocks until the second has completed, so its
	// response arrives after being superseded.
	firstEntered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	var mu sync.Mutex

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			close(firstEntered)
			<-release
		}
		writePage(t, w, wire.HistoryPage{Last: true})
	})

	p := NewPager(srv.URL, "tok", 20)
	defer p.Close()

	errc := make(chan error, 1)
	go func() {
		_, err := p.FetchPage(context.Background(), "77", 2)
		errc <- err
	}()

	<-firstEntered
	_, err := p.FetchPage(context.Background(), "77", 0)
	require.NoError(t, err)

	close(release)
	require.ErrorIs(t, <-errc, ErrStale)
}

func TestFetchPage_GenerationsAreScopedPerConversation(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, wire.HistoryPage{Last: true})
	})

	p := NewPager(srv.URL, "tok", 20)
	defer p.Close()

	// A fetch for another conversation must not invalidate this one.
	_, err := p.FetchPage(context.Background(), "A", 0)
	require.NoError(t, err)
	_, err = p.FetchPage(context.Background(), "B", 0)
	require.NoError(t, err)
	_, err = p.FetchPage(context.Background(), "A", 1)
	require.NoError(t, err)
}
