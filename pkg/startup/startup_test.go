package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type journal struct {
	events []string
}

func (j *journal) dependency(name string, requires ...string) *Dependency {
	return &Dependency{
		Name:     name,
		Requires: requires,
		StartFn: func(context.Context) error {
			j.events = append(j.events, "start:"+name)
			return nil
		},
		StopFn: func(context.Context) error {
			j.events = append(j.events, "stop:"+name)
			return nil
		},
	}
}

func TestStartup_DependencyOrder(t *testing.T) {
	j := &journal{}
	s := NewStartup(silentLogger(), 1)
	s.AddDependency(j.dependency("http", "database", "redis"))
	s.AddDependency(j.dependency("database"))
	s.AddDependency(j.dependency("redis"))

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, []string{"start:database", "start:redis", "start:http"}, j.events)
	assert.Equal(t, StartupStatusStarted, s.Status("http"))

	j.events = nil
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, []string{"stop:http", "stop:redis", "stop:database"}, j.events)
	assert.Equal(t, StartupStatusStopped, s.Status("database"))
}

func TestStartup_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	s := NewStartup(silentLogger(), 3)
	s.backoffUnit = time.Millisecond
	s.AddDependency(&Dependency{
		Name: "database",
		StartFn: func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		},
	})

	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 3, calls)
}

func TestStartup_GivesUp(t *testing.T) {
	s := NewStartup(silentLogger(), 2)
	s.backoffUnit = time.Millisecond
	s.AddDependency(&Dependency{
		Name:    "kafka",
		StartFn: func(context.Context) error { return errors.New("no brokers") },
	})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "startup failed after 2 attempts")
	assert.Contains(t, err.Error(), "no brokers")
	assert.Equal(t, StartupStatusFailed, s.Status("kafka"))
}

func TestStartup_UnknownAndCyclicDependencies(t *testing.T) {
	j := &journal{}

	s := NewStartup(silentLogger(), 1)
	s.AddDependency(j.dependency("http", "database"))
	assert.ErrorContains(t, s.Start(context.Background()), "unknown dependency 'database'")

	s = NewStartup(silentLogger(), 1)
	s.AddDependency(j.dependency("a", "b"))
	s.AddDependency(j.dependency("b", "a"))
	assert.ErrorContains(t, s.Start(context.Background()), "dependency cycle")
}

func TestStartup_CancelledDuringBackoff(t *testing.T) {
	s := NewStartup(silentLogger(), 5)
	s.backoffUnit = time.Hour
	s.AddDependency(&Dependency{
		Name:    "redis",
		StartFn: func(context.Context) error { return errors.New("down") },
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, s.Start(ctx), context.DeadlineExceeded)
}
