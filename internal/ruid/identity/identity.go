package identity

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/statsig-io/ruid/internal/ruid/entity"
)

const (
	StrategyStatic    = "static"
	StrategyHTTP      = "http"
	StrategyInterface = "interface"
)

var ErrLookup = errors.New("identity lookup failed")

// Resolver yields the identity this process stamps into every id.
// It is called once at startup, before any request is served.
type Resolver interface {
	Resolve(ctx context.Context) (entity.Identity, error)
}

type Config struct {
	Strategy  string
	ClusterID uint64
	// NodeID is used by the static strategy only.
	NodeID        uint64
	LookupURL     string
	LookupTimeout time.Duration
	Interface     string
	// NodeBits is how many low bits of the IPv4 address become the node id.
	NodeBits uint8
}

// New returns the resolver named by cfg.Strategy. An empty strategy is static.
func New(cfg Config) (Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Strategy)) {
	case "", StrategyStatic:
		return Static{Identity: entity.Identity{ClusterID: cfg.ClusterID, NodeID: cfg.NodeID}}, nil
	case StrategyHTTP:
		if cfg.LookupURL == "" {
			return nil, fmt.Errorf("%w: http identity strategy needs a lookup url", entity.ErrConfig)
		}
		if err := checkNodeBits(cfg.NodeBits); err != nil {
			return nil, err
		}
		return NewHTTPLookup(cfg.LookupURL, cfg.LookupTimeout, cfg.ClusterID, cfg.NodeBits), nil
	case StrategyInterface:
		if err := checkNodeBits(cfg.NodeBits); err != nil {
			return nil, err
		}
		return NewInterfaceLookup(cfg.Interface, cfg.ClusterID, cfg.NodeBits), nil
	default:
		return nil, fmt.Errorf("%w: unknown identity strategy %q", entity.ErrConfig, cfg.Strategy)
	}
}

type Static struct {
	Identity entity.Identity
}

func (s Static) Resolve(context.Context) (entity.Identity, error) {
	return s.Identity, nil
}

// NodeFromIP takes the low bits of an IPv4 address as the node id. For
// bits <= 8 this is the last octet masked to bits.
func NodeFromIP(ip net.IP, bits uint8) (uint64, error) {
	if err := checkNodeBits(bits); err != nil {
		return 0, err
	}

	v4 := ip.To4()
	if v4 == nil {
		return 0, fmt.Errorf("%w: %s is not an IPv4 address", ErrLookup, ip)
	}

	return uint64(binary.BigEndian.Uint32(v4)) & (1<<bits - 1), nil
}

func checkNodeBits(bits uint8) error {
	if bits == 0 || bits > net.IPv4len*8 {
		return fmt.Errorf("%w: cannot derive %d node bits from an IPv4 address", entity.ErrConfig, bits)
	}
	return nil
}
