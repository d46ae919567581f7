package inbound

// Ids travel as decimal strings so JSON clients limited to 53-bit
// integers do not round them.

type IDsResponse struct {
	IDs []string `json:"ids"`
}

func (IDsResponse) Message() string {
	return "ids generated"
}

type DecodeResponse struct {
	ID        string `json:"id"`
	Timestamp uint64 `json:"timestamp"`
	UnixMs    int64  `json:"unix_ms"`
	Time      string `json:"time"`
	Sequence  uint64 `json:"sequence"`
	ClusterID uint64 `json:"cluster_id"`
	NodeID    uint64 `json:"node_id"`
	Valid     bool   `json:"valid"`
	Reason    string `json:"reason,omitempty"`
}

type LayoutResponse struct {
	TimestampBits   uint8  `json:"timestamp_bits"`
	SequenceBits    uint8  `json:"sequence_bits"`
	ClusterBits     uint8  `json:"cluster_bits"`
	NodeBits        uint8  `json:"node_bits"`
	MaxTimestamp    uint64 `json:"max_timestamp"`
	MaxSequence     uint64 `json:"max_sequence"`
	MaxCluster      uint64 `json:"max_cluster"`
	MaxNode         uint64 `json:"max_node"`
	TimestampShift  uint8  `json:"timestamp_shift"`
	SequenceShift   uint8  `json:"sequence_shift"`
	ClusterShift    uint8  `json:"cluster_shift"`
	EpochMs         int64  `json:"epoch_ms"`
	Epoch           string `json:"epoch"`
	SkewToleranceMs uint64 `json:"skew_tolerance_ms"`
	ClusterID       uint64 `json:"cluster_id"`
	NodeID          uint64 `json:"node_id"`
	Suffix          uint64 `json:"suffix"`
	BatchMax        int    `json:"batch_max"`
}

type StatsResponse struct {
	Counts        map[string]uint64 `json:"counts"`
	LastError     string            `json:"last_error,omitempty"`
	LastTimestamp uint64            `json:"last_timestamp"`
	LastSequence  uint64            `json:"last_sequence"`
	Halted        bool              `json:"halted"`
	HaltReason    string            `json:"halt_reason,omitempty"`
}
