// Package api is the HTTP client for the incident-management backend that
// owns causal-tree analyses.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msalah0e/causa/internal/causal"
	"github.com/msalah0e/causa/internal/editor"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("backend returned %d", e.Code)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Code, body)
}

// Is maps 404 and 409 onto ErrNotFound and ErrConflict.
func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == http.StatusNotFound
	case ErrConflict:
		return e.Code == http.StatusConflict
	}
	return false
}

// Config configures a Client.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// Client talks to the backend API.
type Client struct {
	base  *url.URL
	http  *http.Client
	cache *gocache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// New creates a client for the given base URL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid api base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base:  base,
		http:  &http.Client{Timeout: cfg.Timeout},
		cache: gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL+time.Minute),
		ttl:   cfg.CacheTTL,
		log:   log,
	}, nil
}

// endpoint appends path segments to the base URL. Segments are raw ids;
// each is escaped once, so ids may contain spaces or slashes.
func (c *Client) endpoint(segments ...string) *url.URL {
	u := *c.base
	path, raw := u.Path, u.EscapedPath()
	for _, seg := range segments {
		path += "/" + seg
		raw += "/" + url.PathEscape(seg)
	}
	u.Path, u.RawPath = path, raw
	return &u
}

func (c *Client) nodesURL(analysisID string) *url.URL {
	return c.endpoint("analyses", analysisID, "causal-nodes")
}

// ListNodes fetches every node of an analysis. Results are cached for the
// configured TTL; a zero TTL disables the cache.
func (c *Client) ListNodes(ctx context.Context, analysisID string) ([]causal.Node, error) {
	u := c.nodesURL(analysisID)
	key := u.EscapedPath()
	if c.ttl > 0 {
		if v, ok := c.cache.Get(key); ok {
			c.log.Debug("node list cache hit", zap.String("analysis", analysisID))
			return append([]causal.Node(nil), v.([]causal.Node)...), nil
		}
	}

	var nodes []causal.Node
	if err := c.do(ctx, http.MethodGet, u, nil, &nodes); err != nil {
		return nil, fmt.Errorf("list nodes of %s: %w", analysisID, err)
	}
	if c.ttl > 0 {
		c.cache.Set(key, nodes, c.ttl)
	}
	return append([]causal.Node(nil), nodes...), nil
}

// Analysis fetches the nodes of an analysis wrapped as an Analysis.
func (c *Client) Analysis(ctx context.Context, analysisID string) (*causal.Analysis, error) {
	nodes, err := c.ListNodes(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	return &causal.Analysis{ID: analysisID, Nodes: nodes}, nil
}

// UpdateNode sends an update payload for one node and returns the node as
// stored by the backend. The analysis' cached node list is invalidated. When
// the backend answers without a body the node is rebuilt from the payload.
func (c *Client) UpdateNode(ctx context.Context, analysisID, nodeID string, dto editor.UpdateNodeDTO) (causal.Node, error) {
	body, err := json.Marshal(dto)
	if err != nil {
		return causal.Node{}, err
	}

	var updated causal.Node
	u := c.endpoint("analyses", analysisID, "causal-nodes", nodeID)
	err = c.do(ctx, http.MethodPatch, u, bytes.NewReader(body), &updated)
	c.cache.Delete(c.nodesURL(analysisID).EscapedPath())
	if err != nil {
		return causal.Node{}, fmt.Errorf("update node %s: %w", nodeID, err)
	}
	if updated.ID == "" {
		updated = causal.Node{
			ID:          nodeID,
			Fact:        dto.Fact,
			FactType:    dto.FactType,
			NodeType:    dto.NodeType,
			ParentNodes: append([]string{}, dto.ParentNodes...),
		}
	}
	return updated, nil
}

// Ping checks that the backend answers at all. Any HTTP response counts as
// reachable; only transport errors are returned.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String(), nil)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return time.Since(start), nil
}

func (c *Client) do(ctx context.Context, method string, u *url.URL, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("path", u.Path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
