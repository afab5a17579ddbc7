package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	sweep := &stubJob{name: "notification-sweep"}
	poll := &stubJob{name: "pending-transaction-poll"}
	registry := NewRegistry(sweep, nil, poll)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, sweep, jobs[0])
	assert.Same(t, poll, jobs[1])
	assert.Equal(t, []string{"notification-sweep", "pending-transaction-poll"}, registry.Names())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "outbox-retention"})

	assert.Error(t, registry.Register(&stubJob{name: "outbox-retention"}))
	assert.Error(t, registry.Register(&stubJob{name: " "}))
	assert.Error(t, registry.Register(nil))
	assert.NoError(t, registry.Register(&stubJob{name: "notification-sweep"}))
	assert.Len(t, registry.Jobs(), 2)
}
