package block

import (
	"fmt"

	"github.com/greenpoints/greenledger/types"
)

// DifficultyStep makes Difficulty the required difficulty for blocks from
// Height on.
type DifficultyStep struct {
	Height     int `json:"height"`
	Difficulty int `json:"difficulty"`
}

// DifficultySchedule is the difficulty history of a chain, ordered by
// height. It is kept outside the blocks: a block's own Difficulty field is
// not covered by its hash and is never used to decide what it must meet.
// A schedule is never modified in place.
type DifficultySchedule []DifficultyStep

// NewSchedule starts a schedule at the genesis difficulty.
func NewSchedule(difficulty int) DifficultySchedule {
	return DifficultySchedule{{Height: 0, Difficulty: difficulty}}
}

// At returns the difficulty in effect at height.
func (s DifficultySchedule) At(height int) int {
	if len(s) == 0 {
		return 0
	}
	d := s[0].Difficulty
	for _, step := range s {
		if step.Height > height {
			break
		}
		d = step.Difficulty
	}
	return d
}

// Current returns the difficulty of the last step.
func (s DifficultySchedule) Current() int {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Difficulty
}

// With returns a copy of s where difficulty applies from height on. Steps at
// or past height are replaced; a step that repeats the previous difficulty
// is not added.
func (s DifficultySchedule) With(height, difficulty int) DifficultySchedule {
	out := make(DifficultySchedule, 0, len(s)+1)
	for _, step := range s {
		if step.Height < height {
			out = append(out, step)
		}
	}
	if len(out) > 0 && out[len(out)-1].Difficulty == difficulty {
		return out
	}
	return append(out, DifficultyStep{Height: height, Difficulty: difficulty})
}

// Clone returns an independent copy.
func (s DifficultySchedule) Clone() DifficultySchedule {
	if s == nil {
		return nil
	}
	return append(DifficultySchedule(nil), s...)
}

// Validate checks that the schedule starts at height 0, that heights
// strictly increase and that every difficulty is within 0..max.
func (s DifficultySchedule) Validate(max int) error {
	if len(s) == 0 {
		return fmt.Errorf("%w: empty difficulty schedule", ErrValidation)
	}
	if s[0].Height != 0 {
		return fmt.Errorf("%w: difficulty schedule starts at height %d", ErrValidation, s[0].Height)
	}
	for i, step := range s {
		if step.Difficulty < 0 || step.Difficulty > max {
			return fmt.Errorf("%w: difficulty %d at height %d is outside 0..%d", ErrValidation, step.Difficulty, step.Height, max)
		}
		if i > 0 && step.Height <= s[i-1].Height {
			return fmt.Errorf("%w: difficulty schedule heights not increasing at %d", ErrValidation, step.Height)
		}
	}
	return nil
}

// IsRecordOnly reports whether the payload holds only audit records. Such
// blocks are appended without mining.
func (b *Block) IsRecordOnly() bool {
	if len(b.Data) == 0 {
		return false
	}
	for _, e := range b.Data {
		if e.Kind != types.EntryKindRecord {
			return false
		}
	}
	return true
}
