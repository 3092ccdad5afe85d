package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFromMark(t *testing.T) {
	cases := map[string]StatusKey{"": StatusPresent, "h": StatusPresent, "S": StatusSick, "i": StatusExcused, "A": StatusAbsent, "alfa": StatusAbsent}
	for mark, want := range cases {
		got, ok := StatusFromMark(mark)
		require.True(t, ok, mark)
		assert.Equal(t, want, got)
	}
	_, ok := StatusFromMark("X")
	assert.False(t, ok)
}

func TestStatusesMarshalAlwaysHasFourKeys(t *testing.T) {
	b, err := json.Marshal(AttendanceStatuses{StatusAbsent: {3, 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hadir":[],"sakit":[],"izin":[],"alfa":[1,3]}`, string(b))
}

func TestDecodeStatusesObjectAndLegacyString(t *testing.T) {
	obj, err := DecodeStatuses([]byte(`{"hadir":[2,"1"],"alfa":[3],"terlambat":[9]}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, obj[StatusPresent])
	assert.Equal(t, []int64{3}, obj[StatusAbsent])
	assert.Equal(t, []int64{}, obj[StatusSick])
	assert.Len(t, obj, 4)

	legacy, err := DecodeStatuses([]byte(`"{\"sakit\":[5],\"izin\":[\"x\",6]}"`))
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, legacy[StatusSick])
	assert.Equal(t, []int64{6}, legacy[StatusExcused])
}

func TestDecodeStatusesEmptyAndBroken(t *testing.T) {
	empty, err := DecodeStatuses(nil)
	require.NoError(t, err)
	assert.Equal(t, EmptyStatuses(), empty)

	_, err = DecodeStatuses([]byte(`{not json`))
	assert.Error(t, err)

	var scanned AttendanceStatuses
	require.NoError(t, scanned.Scan([]byte(`[1,2,3]`)))
	assert.Equal(t, EmptyStatuses(), scanned)

	require.NoError(t, scanned.Scan(nil))
	assert.Equal(t, EmptyStatuses(), scanned)
}

func TestStatusOfPriority(t *testing.T) {
	s := AttendanceStatuses{
		StatusPresent: {1, 2, 3},
		StatusExcused: {2, 3},
		StatusSick:    {3},
		StatusAbsent:  {4},
	}
	cases := map[int64]StatusKey{1: StatusPresent, 2: StatusExcused, 3: StatusSick, 4: StatusAbsent}
	for id, want := range cases {
		got, ok := s.StatusOf(id)
		require.True(t, ok)
		assert.Equal(t, want, got, "student %d", id)
	}
	_, ok := s.StatusOf(99)
	assert.False(t, ok)
}

func TestStatusCountsAdd(t *testing.T) {
	var a StatusCounts
	a.Inc(StatusPresent)
	a.Inc(StatusAbsent)
	b := StatusCounts{Present: 1, Sick: 2}
	assert.Equal(t, StatusCounts{Present: 2, Sick: 2, Absent: 1}, a.Add(b))
	assert.Equal(t, 5, a.Add(b).Total())
}
