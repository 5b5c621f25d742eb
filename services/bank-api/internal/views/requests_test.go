package views

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationRequest_DateOfBirthAcceptsCalendarDate(t *testing.T) {
	var req ApplicationRequest
	require.NoError(t, json.Unmarshal([]byte(`{"type":"checking","dateOfBirth":"1990-05-17"}`), &req))

	require.NotNil(t, req.DateOfBirth)
	assert.Equal(t, time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC), req.DateOfBirth.Time)
	assert.Equal(t, time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC), *req.DateOfBirth.TimePtr())
}

func TestApplicationRequest_DateOfBirthAcceptsTimestamp(t *testing.T) {
	var req ApplicationRequest
	require.NoError(t, json.Unmarshal([]byte(`{"dateOfBirth":"1990-05-17T15:04:05Z"}`), &req))

	require.NotNil(t, req.DateOfBirth)
	assert.Equal(t, time.Date(1990, time.May, 17, 0, 0, 0, 0, time.UTC), req.DateOfBirth.Time)
}

func TestApplicationRequest_DateOfBirthOptional(t *testing.T) {
	var req ApplicationRequest
	require.NoError(t, json.Unmarshal([]byte(`{"dateOfBirth":null}`), &req))
	assert.Nil(t, req.DateOfBirth)
	assert.Nil(t, req.DateOfBirth.TimePtr())
}

func TestApplicationRequest_DateOfBirthRejectsGarbage(t *testing.T) {
	var req ApplicationRequest
	assert.Error(t, json.Unmarshal([]byte(`{"dateOfBirth":"17/05/1990"}`), &req))
	assert.Error(t, json.Unmarshal([]byte(`{"dateOfBirth":19900517}`), &req))
}

func TestDate_MarshalsAsCalendarDate(t *testing.T) {
	out, err := json.Marshal(Date{Time: time.Date(1990, time.May, 17, 9, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.JSONEq(t, `"1990-05-17"`, string(out))
}
