package block

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenpoints/greenledger/types"
)

func TestDifficultySchedule_At(t *testing.T) {
	s := NewSchedule(2).With(5, 4).With(9, 1)
	require.NoError(t, s.Validate(16))

	tests := []struct {
		height int
		want   int
	}{
		{0, 2}, {4, 2}, {5, 4}, {8, 4}, {9, 1}, {100, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.At(tt.height), "height %d", tt.height)
	}
	assert.Equal(t, 1, s.Current())
	assert.Equal(t, 0, DifficultySchedule(nil).At(3))
}

func TestDifficultySchedule_With(t *testing.T) {
	base := NewSchedule(2)

	raised := base.With(5, 4)
	assert.Equal(t, DifficultySchedule{{0, 2}, {5, 4}}, raised)
	assert.Equal(t, DifficultySchedule{{0, 2}}, base, "receiver is untouched")

	// a second change at the same height replaces the first
	assert.Equal(t, DifficultySchedule{{0, 2}, {5, 3}}, raised.With(5, 3))
	// reverting at the same height drops the step
	assert.Equal(t, DifficultySchedule{{0, 2}}, raised.With(5, 2))
	// repeating the current difficulty adds nothing
	assert.Equal(t, raised, raised.With(7, 4))
}

func TestDifficultySchedule_Validate(t *testing.T) {
	bad := []DifficultySchedule{
		nil,
		{{Height: 1, Difficulty: 2}},
		{{0, 2}, {3, 4}, {3, 5}},
		{{0, -1}},
		{{0, 17}},
	}
	for _, s := range bad {
		err := s.Validate(16)
		assert.True(t, errors.Is(err, ErrValidation), "%v", s)
	}
}

func TestIsRecordOnly(t *testing.T) {
	rec, err := New(1, testTime, []types.Entry{types.RecordEntry(types.Record{"event": "scan"})}, ZeroHash, 0)
	require.NoError(t, err)
	assert.True(t, rec.IsRecordOnly())

	mixed, err := New(1, testTime, sampleEntries(), ZeroHash, 0)
	require.NoError(t, err)
	assert.False(t, mixed.IsRecordOnly())

	empty, err := New(0, testTime, nil, ZeroHash, 0)
	require.NoError(t, err)
	assert.False(t, empty.IsRecordOnly())
}
