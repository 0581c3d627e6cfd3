package wizard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions(t *testing.T) {
	t.Parallel()
	s := NewSessions(time.Minute, staticLoader{}, &fakeDispatcher{})

	w := s.Start(Owner{UserID: "u-1"})
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(w.ID())
	require.NoError(t, err)
	assert.Same(t, w, got)
	assert.Equal(t, "u-1", got.Owner().UserID)

	s.Delete(w.ID())
	_, err = s.Get(w.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestSessions_Expire(t *testing.T) {
	t.Parallel()
	s := NewSessions(20*time.Millisecond, staticLoader{}, &fakeDispatcher{})
	w := s.Start(Owner{})

	time.Sleep(50 * time.Millisecond)
	_, err := s.Get(w.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}
