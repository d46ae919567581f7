package identity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/statsig-io/ruid/internal/ruid/entity"
)

const maxLookupBody = 256

// HTTPLookup asks a metadata endpoint for this host's IPv4 address and
// derives the node id from it.
type HTTPLookup struct {
	client    *http.Client
	url       string
	clusterID uint64
	nodeBits  uint8
}

func NewHTTPLookup(url string, timeout time.Duration, clusterID uint64, nodeBits uint8) *HTTPLookup {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &HTTPLookup{
		client:    &http.Client{Timeout: timeout},
		url:       url,
		clusterID: clusterID,
		nodeBits:  nodeBits,
	}
}

func (h *HTTPLookup) Resolve(ctx context.Context) (entity.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return entity.Identity{}, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return entity.Identity{}, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return entity.Identity{}, fmt.Errorf("%w: %s returned %s", ErrLookup, h.url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLookupBody))
	if err != nil {
		return entity.Identity{}, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	raw := strings.Join(strings.Fields(string(body)), "")
	ip := net.ParseIP(raw)
	if ip == nil {
		return entity.Identity{}, fmt.Errorf("%w: %q is not an IP address", ErrLookup, raw)
	}

	node, err := NodeFromIP(ip, h.nodeBits)
	if err != nil {
		return entity.Identity{}, err
	}

	slog.InfoContext(ctx, "node identity resolved", "strategy", StrategyHTTP, "ip", ip.String(), "cluster_id", h.clusterID, "node_id", node)

	return entity.Identity{ClusterID: h.clusterID, NodeID: node}, nil
}
