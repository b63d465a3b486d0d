package drover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterDuplicatePanics(t *testing.T) {
	noop := func(ctx context.Context, inv *Invocation) (interface{}, error) {
		return nil, nil
	}

	Register("task_test-dup", noop)
	assert.Panics(t, func() { Register("task_test-dup", noop) })
}

func TestRegisterRejectsEmpty(t *testing.T) {
	assert.Panics(t, func() { Register("", nil) })
}

func TestLookupTask(t *testing.T) {
	Register("task_test-lookup", func(ctx context.Context, inv *Invocation) (interface{}, error) {
		return "ok", nil
	})

	fn, ok := lookupTask("task_test-lookup")
	assert.True(t, ok)
	assert.NotNil(t, fn)

	_, ok = lookupTask("task_test-never-registered")
	assert.False(t, ok)
}
