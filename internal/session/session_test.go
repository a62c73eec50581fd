package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRejectsOutOfRangePageSize(t *testing.T) {
	st, err := NewStore(time.Minute)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Create([]any{1, 2, 3}, 0)
	assert.Error(t, err)

	_, err = st.Create([]any{1, 2, 3}, 201)
	assert.Error(t, err)
}

func TestNextPagePaginatesAndDrains(t *testing.T) {
	st, err := NewStore(time.Minute)
	require.NoError(t, err)
	defer st.Close()

	results := []any{1, 2, 3, 4, 5}
	s, err := st.Create(results, 2)
	require.NoError(t, err)

	page1 := s.NextPage(0)
	assert.Equal(t, []any{1, 2}, page1)
	assert.Equal(t, 3, s.Remaining())

	page2 := s.NextPage(0)
	assert.Equal(t, []any{3, 4}, page2)

	page3 := s.NextPage(0)
	assert.Equal(t, []any{5}, page3)
	assert.Equal(t, 0, s.Remaining())
}

func TestGetReturnsErrorForUnknownCursor(t *testing.T) {
	st, err := NewStore(time.Minute)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Get("does-not-exist")
	assert.Error(t, err)
}

func TestGetRoundTripsByCursor(t *testing.T) {
	st, err := NewStore(time.Minute)
	require.NoError(t, err)
	defer st.Close()

	s, err := st.Create([]any{"a"}, 10)
	require.NoError(t, err)

	got, err := st.Get(s.Cursor())
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestSweepEvictsExpiredSessions(t *testing.T) {
	st, err := NewStore(10 * time.Millisecond)
	require.NoError(t, err)
	defer st.Close()

	s, err := st.Create([]any{1}, 10)
	require.NoError(t, err)

	st.sweep(time.Now().Add(time.Hour))
	_, err = st.Get(s.Cursor())
	assert.Error(t, err)
}
