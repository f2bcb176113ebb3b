package requestid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWithFrom(t *testing.T) {
	assert.Equal(t, "", From(context.Background()))

	id := New()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, New())

	assert.Equal(t, id, From(With(context.Background(), id)))
}
