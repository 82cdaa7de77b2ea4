package services_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bionicotaku/lingo-services-upload/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("wrapped: %w", services.DatabaseError(services.ReasonVideoPersistFailed, "failed to create video record", cause))

	assert.Equal(t, services.KindDatabase, services.KindOf(err))
	assert.True(t, services.IsKind(err, services.KindDatabase))
	assert.False(t, services.IsKind(err, services.KindConflict))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to create video record")

	assert.Equal(t, services.KindInternal, services.KindOf(errors.New("plain")))
	assert.Equal(t, services.KindInternal, services.KindOf(nil))
	assert.Equal(t, "not_found", services.KindNotFound.String())
}
