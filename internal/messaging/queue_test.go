package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codegraph/internal/scheduling"
)

func TestPublishOrderPreservedPerType(t *testing.T) {
	q := NewQueue(nil)

	var got []string
	On(q, func(m Status) { got = append(got, m.Text) })

	q.Publish(Status{Text: "A"})
	q.Publish(Status{Text: "B"})

	q.StartMessageLoopThreaded()
	q.StopMessageLoop()

	assert.Equal(t, []string{"A", "B"}, got)
}

func TestEverySubscriberReceivesInOrder(t *testing.T) {
	q := NewQueue(nil)

	var first, second []string
	On(q, func(m Status) { first = append(first, m.Text) })
	On(q, func(m Status) { second = append(second, m.Text) })

	for _, text := range []string{"one", "two", "three"} {
		q.Publish(Status{Text: text})
	}

	q.StartMessageLoopThreaded()
	q.StopMessageLoop()

	assert.Equal(t, []string{"one", "two", "three"}, first)
	assert.Equal(t, []string{"one", "two", "three"}, second)
}

func TestDispatchByConcreteType(t *testing.T) {
	q := NewQueue(nil)

	var statuses, refreshes int
	On(q, func(Status) { statuses++ })
	On(q, func(Refresh) { refreshes++ })

	q.Publish(Status{Text: "hello"})
	q.Publish(RefreshUIOnly())
	q.Publish(Status{Text: "world"})

	q.StartMessageLoopThreaded()
	q.StopMessageLoop()

	assert.Equal(t, 2, statuses)
	assert.Equal(t, 1, refreshes)
}

func TestSendMessagesAsTasks(t *testing.T) {
	scheduler := scheduling.NewTaskScheduler()
	q := NewQueue(scheduler)
	q.SetSendMessagesAsTasks(true)

	var got []string
	On(q, func(m Status) { got = append(got, m.Text) })

	q.Publish(Status{Text: "A"})
	q.Publish(Status{Text: "B"})

	scheduler.StartSchedulerLoopThreaded()
	q.StartMessageLoopThreaded()

	// messages first, then the scheduler carrying the deliveries
	q.StopMessageLoop()
	scheduler.StopSchedulerLoop()

	assert.Equal(t, []string{"A", "B"}, got)
}

func TestRefreshDefaults(t *testing.T) {
	r := NewRefresh()
	require.True(t, r.ReloadStyle)
	assert.False(t, r.UIOnly)

	ui := RefreshUIOnly()
	assert.True(t, ui.UIOnly)
}
