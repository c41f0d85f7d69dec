package remind

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	statuses := []Status{StatusActive, StatusCanceled, StatusEnded}

	allowed := map[[2]Status]bool{
		{StatusActive, StatusCanceled}: true,
		{StatusActive, StatusEnded}:    true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTransition(t *testing.T) {
	sch := &Schedule{Status: StatusActive}

	changed, err := Transition(sch, StatusCanceled)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusCanceled, sch.Status)

	changed, err = Transition(sch, StatusCanceled)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = Transition(sch, StatusEnded)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, changed)
	assert.Equal(t, StatusCanceled, sch.Status)

	_, err = Transition(sch, StatusActive)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}
