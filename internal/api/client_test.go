package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/msalah0e/causa/internal/causal"
	"github.com/msalah0e/causa/internal/editor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNodes = []causal.Node{
	{ID: "f", Numero: 1, Fact: "Burn", FactType: causal.FactVariation, NodeType: causal.FinalEvent},
	{ID: "a", Numero: 2, Fact: "Hot surface touched", FactType: causal.FactVariation, NodeType: causal.Intermediate, ParentNodes: []string{"f"}},
}

func newTestClient(t *testing.T, h http.Handler, ttl time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/api/", Timeout: 2 * time.Second, CacheTTL: ttl})
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Config{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
	_, err = New(Config{BaseURL: "://"})
	assert.Error(t, err)
}

func TestListNodes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/analyses/an-1/causal-nodes", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		json.NewEncoder(w).Encode(testNodes)
	}), 0)

	nodes, err := c.ListNodes(context.Background(), "an-1")
	require.NoError(t, err)
	assert.Equal(t, testNodes, nodes)
}

func TestListNodesCached(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			json.NewEncoder(w).Encode(testNodes[1])
			return
		}
		hits.Add(1)
		json.NewEncoder(w).Encode(testNodes)
	}), time.Minute)

	ctx := context.Background()
	_, err := c.ListNodes(ctx, "an-1")
	require.NoError(t, err)
	_, err = c.ListNodes(ctx, "an-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second list should be served from cache")

	_, err = c.UpdateNode(ctx, "an-1", "a", editor.UpdateNodeDTO{Fact: "x"})
	require.NoError(t, err)
	_, err = c.ListNodes(ctx, "an-1")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "update should invalidate the cached list")
}

func TestUpdateNode(t *testing.T) {
	dto := editor.UpdateNodeDTO{
		Fact:         "Hot surface touched",
		FactType:     causal.FactVariation,
		NodeType:     causal.Intermediate,
		ParentNodes:  []string{"f"},
		ParentLinks:  []causal.ParentLink{{ParentNodeID: "f", LinkType: causal.LinkConfirmed}},
		RelationType: causal.Chain,
	}

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/analyses/an-1/causal-nodes/a", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "chain", got["relationType"])
		assert.Equal(t, []any{"f"}, got["parentNodes"])
		assert.Equal(t, []any{map[string]any{"parentNodeId": "f", "linkType": "confirmada"}}, got["parentLinks"])

		json.NewEncoder(w).Encode(testNodes[1])
	}), 0)

	n, err := c.UpdateNode(context.Background(), "an-1", "a", dto)
	require.NoError(t, err)
	assert.Equal(t, "a", n.ID)
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		code   int
		target error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusConflict, ErrConflict},
	}
	for _, tt := range tests {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.code)
		}), 0)

		_, err := c.ListNodes(context.Background(), "an-1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, tt.target), "code %d should match %v", tt.code, tt.target)

		var se *StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, tt.code, se.Code)
		assert.Contains(t, se.Error(), "nope")
	}
}

func TestServerErrorIsNotSentinel(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}), 0)
	_, err := c.ListNodes(context.Background(), "an-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "500")
}

func TestContextCancelled(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(testNodes)
	}), 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ListNodes(ctx, "an-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), 0)
	_, err := c.Ping(context.Background())
	assert.NoError(t, err, "any HTTP answer means the backend is reachable")

	down, err := New(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)
	_, err = down.Ping(context.Background())
	assert.Error(t, err)
}

func TestIDsAreEscapedOnce(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		if r.Method == http.MethodPatch {
			assert.Equal(t, "/api/analyses/INC 2024/7/causal-nodes/n%1", r.URL.Path)
			json.NewEncoder(w).Encode(testNodes[1])
			return
		}
		assert.Equal(t, "/api/analyses/INC 2024/7/causal-nodes", r.URL.Path)
		json.NewEncoder(w).Encode(testNodes)
	}), 0)

	ctx := context.Background()
	_, err := c.ListNodes(ctx, "INC 2024/7")
	require.NoError(t, err)
	_, err = c.UpdateNode(ctx, "INC 2024/7", "n%1", editor.UpdateNodeDTO{Fact: "x"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/analyses/INC%202024%2F7/causal-nodes",
		"/api/analyses/INC%202024%2F7/causal-nodes/n%251",
	}, paths)
}

func TestUpdateNodeNoContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), 0)

	dto := editor.UpdateNodeDTO{
		Fact:        "Hot surface touched",
		FactType:    causal.FactVariation,
		NodeType:    causal.Intermediate,
		ParentNodes: []string{"f"},
	}
	n, err := c.UpdateNode(context.Background(), "an-1", "a", dto)
	require.NoError(t, err)
	assert.Equal(t, "a", n.ID)
	assert.Equal(t, "Hot surface touched", n.Label())
	assert.Equal(t, []string{"f"}, n.ParentNodes)
}
