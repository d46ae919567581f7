package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/statsig-io/ruid/internal/ruid/entity"
)

// InterfaceLookup derives the node id from a local IPv4 address. With an
// empty interface name the first non-loopback IPv4 address is used.
type InterfaceLookup struct {
	name      string
	clusterID uint64
	nodeBits  uint8
	addrs     func(name string) ([]net.Addr, error)
}

func NewInterfaceLookup(name string, clusterID uint64, nodeBits uint8) *InterfaceLookup {
	return &InterfaceLookup{
		name:      name,
		clusterID: clusterID,
		nodeBits:  nodeBits,
		addrs:     systemAddrs,
	}
}

func (l *InterfaceLookup) Resolve(ctx context.Context) (entity.Identity, error) {
	addrs, err := l.addrs(l.name)
	if err != nil {
		return entity.Identity{}, fmt.Errorf("%w: %w", ErrLookup, err)
	}

	for _, addr := range addrs {
		var ip net.IP
		switch v := addr.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.To4() == nil || ip.IsLoopback() {
			continue
		}

		node, err := NodeFromIP(ip, l.nodeBits)
		if err != nil {
			return entity.Identity{}, err
		}

		slog.InfoContext(ctx, "node identity resolved", "strategy", StrategyInterface, "interface", l.name, "ip", ip.String(), "cluster_id", l.clusterID, "node_id", node)

		return entity.Identity{ClusterID: l.clusterID, NodeID: node}, nil
	}

	return entity.Identity{}, fmt.Errorf("%w: no IPv4 address on interface %q", ErrLookup, l.name)
}

func systemAddrs(name string) ([]net.Addr, error) {
	if name == "" {
		return net.InterfaceAddrs()
	}

	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return iface.Addrs()
}
