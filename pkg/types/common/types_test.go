package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Validate(t *testing.T) {
	assert.NoError(t, ID("550e8400-e29b-41d4-a716-446655440000").Validate())

	err := ID("").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")

	err = ID("not-a-uuid").Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ID format")
}

func TestNewID_GeneratesValidUUID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NoError(t, a.Validate())
	assert.NotEqual(t, a, b)
}

func TestTimestamp_JSON(t *testing.T) {
	ts := Timestamp(time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC))
	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2023-10-27T10:00:00Z"`, string(data))

	var back Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, time.Time(ts), time.Time(back))

	assert.Error(t, json.Unmarshal([]byte(`"invalid-date"`), &back))
}

func TestPagination(t *testing.T) {
	assert.NoError(t, Pagination{Page: 1, PageSize: 20}.Validate())
	assert.Error(t, Pagination{Page: 0, PageSize: 20}.Validate())
	assert.Error(t, Pagination{Page: 1, PageSize: 501}.Validate())
	assert.Equal(t, 40, Pagination{Page: 3, PageSize: 20}.Offset())
}

func TestResponses(t *testing.T) {
	ok := NewSuccessResponse("C1CC1")
	assert.True(t, ok.Success)
	assert.Equal(t, "C1CC1", ok.Data)

	bad := NewErrorResponse("CTK_001", "invalid chemical notation", "ring 1 not closed")
	assert.False(t, bad.Success)
	require.NotNil(t, bad.Error)
	assert.Equal(t, "CTK_001", bad.Error.Code)
}

func TestBaseEvent(t *testing.T) {
	e := NewBaseEvent("agg-1")
	assert.Equal(t, "agg-1", e.AggregateID())
	assert.NotEmpty(t, e.EventID())
	assert.WithinDuration(t, time.Now(), e.OccurredAt(), time.Second)
}
