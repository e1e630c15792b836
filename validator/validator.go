package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/greenpoints/greenledger/block"
	"github.com/greenpoints/greenledger/logx"
	"github.com/greenpoints/greenledger/monitoring"
)

// ErrChainIntegrity is returned when a chain fails validation.
var ErrChainIntegrity = errors.New("chain integrity check failed")

// Policy selects which difficulty a block's proof of work is checked against.
type Policy string

const (
	// PolicyRecorded checks each mined block against the difficulty the
	// chain's schedule required at its height.
	PolicyRecorded Policy = "recorded"
	// PolicyCurrent checks every mined non-genesis block against the chain's
	// current difficulty. Raising the difficulty then invalidates older
	// blocks, which is how legacy deployments behaved.
	PolicyCurrent Policy = "current"
)

// ParsePolicy maps a config value to a Policy; empty means PolicyRecorded.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyRecorded:
		return PolicyRecorded, nil
	case PolicyCurrent:
		return PolicyCurrent, nil
	default:
		return "", fmt.Errorf("unknown validation policy %q", s)
	}
}

type Options struct {
	Policy Policy
	// ProofOfWork enables the proof-of-work check. Chains that are never
	// mined leave it off.
	ProofOfWork bool
	// Schedule gives the required difficulty per height under
	// PolicyRecorded. Without one, CurrentDifficulty applies at every height.
	Schedule          block.DifficultySchedule
	CurrentDifficulty int
}

// Required returns the difficulty a mined block at height must meet. The
// block's own Difficulty field is not hashed and is never consulted.
func (o Options) Required(height int) int {
	if o.Policy == PolicyCurrent || len(o.Schedule) == 0 {
		return o.CurrentDifficulty
	}
	return o.Schedule.At(height)
}

// Failure is one problem found at a block index.
type Failure struct {
	Index  int    `json:"index"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail"`
}

type Reason string

const (
	ReasonEmptyChain   Reason = "empty_chain"
	ReasonGenesis      Reason = "bad_genesis"
	ReasonIndex        Reason = "index_sequence"
	ReasonHashMismatch Reason = "hash_mismatch"
	ReasonBrokenLink   Reason = "broken_link"
	ReasonProofOfWork  Reason = "proof_of_work"
	ReasonUnhashable   Reason = "unhashable"
	ReasonMissingBlock Reason = "missing_block"
)

func (f Failure) String() string {
	return fmt.Sprintf("block %d: %s: %s", f.Index, f.Reason, f.Detail)
}

// Report is the outcome of one validation run.
type Report struct {
	Valid    bool      `json:"valid"`
	Length   int       `json:"length"`
	Failures []Failure `json:"failures,omitempty"`
}

// Err returns nil for a valid chain, otherwise ErrChainIntegrity wrapped with
// the first failure.
func (r *Report) Err() error {
	if r == nil || r.Valid {
		return nil
	}
	if len(r.Failures) == 0 {
		return ErrChainIntegrity
	}
	extra := ""
	if n := len(r.Failures) - 1; n > 0 {
		extra = fmt.Sprintf(" (and %d more)", n)
	}
	return fmt.Errorf("%w: %s%s", ErrChainIntegrity, r.Failures[0], extra)
}

// Validate checks the genesis block, then for every later block its index,
// its recomputed hash, its link to the previous block and, when proof of
// work is on, that a block holding transactions meets the required
// difficulty. Record-only blocks are appended unmined and skip that check.
// All failures are collected. It never modifies the blocks.
func Validate(blocks []*block.Block, opts Options) *Report {
	r := &Report{Length: len(blocks)}
	fail := func(index int, reason Reason, format string, args ...interface{}) {
		r.Failures = append(r.Failures, Failure{Index: index, Reason: reason, Detail: fmt.Sprintf(format, args...)})
	}

	if len(blocks) == 0 {
		fail(0, ReasonEmptyChain, "chain has no genesis block")
		return r.finish()
	}

	for i, b := range blocks {
		if b == nil {
			fail(i, ReasonMissingBlock, "nil block")
			continue
		}
		if b.Index != i {
			fail(i, ReasonIndex, "expected index %d, found %d", i, b.Index)
		}

		computed, err := b.ComputeHash()
		if err != nil {
			fail(i, ReasonUnhashable, "%v", err)
		} else if computed != b.Hash {
			fail(i, ReasonHashMismatch, "stored %s, computed %s", block.ShortHash(b.Hash), block.ShortHash(computed))
		}

		if i == 0 {
			if b.PreviousHash != block.ZeroHash {
				fail(i, ReasonGenesis, "previous hash %s is not the zero sentinel", block.ShortHash(b.PreviousHash))
			}
			// legacy chains never checked the genesis work
			if opts.ProofOfWork && opts.Policy != PolicyCurrent {
				checkWork(i, b, opts.Required(i), fail)
			}
			continue
		}

		if prev := blocks[i-1]; prev != nil && b.PreviousHash != prev.Hash {
			fail(i, ReasonBrokenLink, "previous hash %s does not match block %d hash %s",
				block.ShortHash(b.PreviousHash), i-1, block.ShortHash(prev.Hash))
		}

		if opts.ProofOfWork && !b.IsRecordOnly() {
			checkWork(i, b, opts.Required(i), fail)
		}
	}
	return r.finish()
}

func checkWork(i int, b *block.Block, required int, fail func(int, Reason, string, ...interface{})) {
	if !block.MeetsDifficulty(b.Hash, required) {
		fail(i, ReasonProofOfWork, "hash %s does not meet difficulty %d (block claims %d)",
			block.ShortHash(b.Hash), required, b.Difficulty)
	}
}

func (r *Report) finish() *Report {
	r.Valid = len(r.Failures) == 0
	if !r.Valid {
		monitoring.IncreaseValidationFailure()
		for _, f := range r.Failures {
			logx.Warn("VALIDATOR", f.String())
		}
	}
	return r
}
