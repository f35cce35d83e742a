package schedule_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/tagcatalog/pkg/schedule"
)

func TestTickRunsDueTasks(t *testing.T) {
	s := schedule.New()
	var runs atomic.Int32
	s.Every(time.Minute, "count", func(context.Context) { runs.Add(1) })

	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	ctx := context.Background()

	s.Tick(ctx, start)
	s.Wait()
	assert.EqualValues(t, 1, runs.Load())

	s.Tick(ctx, start.Add(30*time.Second))
	s.Wait()
	assert.EqualValues(t, 1, runs.Load())

	s.Tick(ctx, start.Add(time.Minute))
	s.Wait()
	assert.EqualValues(t, 2, runs.Load())
}

func TestTickSkipsOverlappingRun(t *testing.T) {
	s := schedule.New()
	release := make(chan struct{})
	var runs atomic.Int32
	s.Every(time.Second, "slow", func(context.Context) {
		runs.Add(1)
		<-release
	})

	now := time.Now()
	s.Tick(context.Background(), now)
	time.Sleep(20 * time.Millisecond)
	s.Tick(context.Background(), now.Add(time.Hour))

	close(release)
	s.Wait()
	assert.EqualValues(t, 1, runs.Load())
}

func TestPanickingTaskIsContained(t *testing.T) {
	s := schedule.New()
	s.Every(time.Second, "boom", func(context.Context) { panic("boom") })

	assert.NotPanics(t, func() {
		s.Tick(context.Background(), time.Now())
		s.Wait()
	})
	assert.Equal(t, []string{"boom  [1s]"}, s.List())
}
