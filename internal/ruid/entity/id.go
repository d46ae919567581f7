package entity

// Identity is the (cluster, node) pair assigned to one generator instance.
type Identity struct {
	ClusterID uint64
	NodeID    uint64
}

// Suffix is the packed identity stamped into the low bits of every id.
type Suffix uint64

// Fields are the decoded parts of an id.
type Fields struct {
	Timestamp uint64
	Sequence  uint64
	ClusterID uint64
	NodeID    uint64
}

type Outcome string

const (
	OutcomeIssued     Outcome = "ISSUED"
	OutcomeClamped    Outcome = "CLAMPED"
	OutcomeRegression Outcome = "CLOCK_REGRESSION"
	OutcomeExhausted  Outcome = "SEQUENCE_EXHAUSTED"
	OutcomeFatal      Outcome = "FATAL"
)
