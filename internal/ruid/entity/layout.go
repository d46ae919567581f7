package entity

import "fmt"

// IDBits is the width of every packed id.
const IDBits = 64

// Layout partitions a 64-bit id into, from most to least significant,
// [timestamp | sequence | cluster | node].
type Layout struct {
	TimestampBits uint8
	ClusterBits   uint8
	NodeBits      uint8
	SequenceBits  uint8

	MaxTimestamp uint64
	MaxCluster   uint64
	MaxNode      uint64
	MaxSequence  uint64

	TimestampShift uint8
	SequenceShift  uint8
	ClusterShift   uint8
}

// DefaultLayout is 41 bits of milliseconds (~69.7 years), 32 clusters,
// 16 nodes per cluster and 16384 ids per millisecond per node.
var DefaultLayout = MustLayout(41, 5, 4, 14)

// NewLayout validates the widths and derives masks and shifts.
func NewLayout(timestampBits, clusterBits, nodeBits, sequenceBits uint8) (Layout, error) {
	widths := []struct {
		name string
		bits uint8
	}{
		{"timestamp", timestampBits},
		{"cluster", clusterBits},
		{"node", nodeBits},
		{"sequence", sequenceBits},
	}

	total := 0
	for _, w := range widths {
		if w.bits == 0 {
			return Layout{}, fmt.Errorf("%w: %s field has no bits", ErrConfig, w.name)
		}
		total += int(w.bits)
	}
	if total != IDBits {
		return Layout{}, fmt.Errorf("%w: bit widths sum to %d, want %d", ErrConfig, total, IDBits)
	}

	return Layout{
		TimestampBits: timestampBits,
		ClusterBits:   clusterBits,
		NodeBits:      nodeBits,
		SequenceBits:  sequenceBits,

		MaxTimestamp: mask(timestampBits),
		MaxCluster:   mask(clusterBits),
		MaxNode:      mask(nodeBits),
		MaxSequence:  mask(sequenceBits),

		TimestampShift: sequenceBits + clusterBits + nodeBits,
		SequenceShift:  clusterBits + nodeBits,
		ClusterShift:   nodeBits,
	}, nil
}

// MustLayout is like NewLayout but panics on an invalid layout.
func MustLayout(timestampBits, clusterBits, nodeBits, sequenceBits uint8) Layout {
	l, err := NewLayout(timestampBits, clusterBits, nodeBits, sequenceBits)
	if err != nil {
		panic(err)
	}
	return l
}

// Suffix range-checks the identity and returns its packed suffix.
func (l Layout) Suffix(id Identity) (Suffix, error) {
	if id.ClusterID > l.MaxCluster {
		return 0, fmt.Errorf("%w: cluster id %d exceeds %d", ErrConfig, id.ClusterID, l.MaxCluster)
	}
	if id.NodeID > l.MaxNode {
		return 0, fmt.Errorf("%w: node id %d exceeds %d", ErrConfig, id.NodeID, l.MaxNode)
	}

	return Suffix(id.ClusterID<<l.ClusterShift | id.NodeID), nil
}

// Pack assembles an id. Callers guarantee t and seq are within range.
func (l Layout) Pack(t, seq uint64, suffix Suffix) uint64 {
	return t<<l.TimestampShift | seq<<l.SequenceShift | uint64(suffix)
}

// Unpack is the inverse of Pack.
func (l Layout) Unpack(id uint64) Fields {
	return Fields{
		Timestamp: id >> l.TimestampShift & l.MaxTimestamp,
		Sequence:  id >> l.SequenceShift & l.MaxSequence,
		ClusterID: id >> l.ClusterShift & l.MaxCluster,
		NodeID:    id & l.MaxNode,
	}
}

func mask(bits uint8) uint64 {
	return 1<<bits - 1
}

// String renders the widths as timestamp/cluster/node/sequence, e.g. "41/5/4/14".
func (l Layout) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", l.TimestampBits, l.ClusterBits, l.NodeBits, l.SequenceBits)
}
