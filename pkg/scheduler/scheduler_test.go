package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/apollo/pkg/config"
	"github.com/cuemby/apollo/pkg/events"
	"github.com/cuemby/apollo/pkg/log"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

func testConfig() *config.Config {
	return &config.Config{
		ServiceName:      "www",
		ServiceCmd:       "/bin/check_www",
		ServiceFrequency: 30,
		HealFrequency:    60,
		Hostname:         "w01",
		Colo:             "par",
		ExtraService: map[string]config.ExtraService{
			"httpok": {Healthcheck: "/bin/httpok", Frequency: 15, Retries: 3},
			"ping":   {Healthcheck: "/bin/ping", Frequency: 20, Retries: 1},
		},
	}
}

// TestJitterOffsets verifies the offset windows: sub-services in [10,200) ms
// and the main service in [maxSub+100, maxSub+300) ms.
func TestJitterOffsets(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := New(testConfig(), nil, nil, nil, events.NewBroker())
		require.Len(t, s.jobs, 3)

		maxSub := time.Duration(0)
		var mainOffset time.Duration
		for _, j := range s.jobs {
			if j.spec.Main {
				mainOffset = j.offset
				continue
			}
			assert.GreaterOrEqual(t, j.offset, 10*time.Millisecond)
			assert.Less(t, j.offset, 200*time.Millisecond)
			if j.offset > maxSub {
				maxSub = j.offset
			}
		}

		assert.GreaterOrEqual(t, mainOffset, maxSub+100*time.Millisecond)
		assert.Less(t, mainOffset, maxSub+300*time.Millisecond)
	}
}

// TestJobOrder verifies sub-services come before the main service.
func TestJobOrder(t *testing.T) {
	s := New(testConfig(), nil, nil, nil, events.NewBroker())
	require.Len(t, s.jobs, 3)
	assert.False(t, s.jobs[0].spec.Main)
	assert.False(t, s.jobs[1].spec.Main)
	assert.True(t, s.jobs[2].spec.Main)
}

// TestSingleFlight verifies an armed job refuses a second concurrent fire.
func TestSingleFlight(t *testing.T) {
	broker := events.NewBroker()
	defer broker.Close()
	sub := broker.Subscribe()

	s := New(testConfig(), nil, nil, nil, broker)
	j := s.jobs[0]

	require.True(t, j.busy.CompareAndSwap(false, true))
	s.fire(nil, j)

	select {
	case event := <-sub:
		assert.Equal(t, events.EventTickDropped, event.Type)
		assert.Equal(t, j.spec.Name, event.Check)
	case <-time.After(time.Second):
		t.Fatal("expected a dropped-tick event")
	}
	j.busy.Store(false)
}
