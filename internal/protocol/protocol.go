package protocol

const Version = "1.0"

// Call types, one per ledger-facing operation.
const (
	TypeClaimChunk = "CLAIM_CHUNK"
	TypeWriteBlock = "WRITE_BLOCK"
	TypeGiveChunk  = "GIVE_CHUNK"
)

// Call is one signed request from the execution environment. Origin is the
// acting identity; Location is a world voxel coordinate.
type Call struct {
	Type            string   `json:"type"`
	ProtocolVersion string   `json:"protocol_version,omitempty"`
	Origin          string   `json:"origin"`
	Location        [3]int32 `json:"location"`
	Block           uint16   `json:"block"`
	Recipient       string   `json:"recipient,omitempty"`
}

type Result struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Weight  uint64 `json:"weight"`
	// Digest of the touched record after the call; empty when nothing exists.
	Digest string `json:"digest,omitempty"`
}

// Entry is one journal line: an applied call and its outcome.
type Entry struct {
	Seq    uint64 `json:"seq"`
	RunID  string `json:"run_id,omitempty"`
	Call   Call   `json:"call"`
	Result Result `json:"result"`
}
