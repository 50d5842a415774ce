// Package messaging provides the typed publish/subscribe bus that carries
// user intents and status notices between the application layers.
package messaging

import (
	"sync"

	"codegraph/internal/scheduling"
)

// Handler receives messages of the type it was registered for. Handlers run
// on the delivery worker (or the scheduler worker once SetSendMessagesAsTasks
// is enabled) and must not block on each other.
type Handler func(Message)

// Queue is a typed publish/subscribe bus. Delivery order is preserved per
// message type; across types no ordering is promised.
type Queue struct {
	mu          sync.Mutex
	cond        *sync.Cond
	subscribers map[string][]Handler
	backlog     []Message
	running     bool
	halting     bool
	asTasks     bool

	scheduler *scheduling.TaskScheduler
	done      sync.WaitGroup
}

// NewQueue creates a bus that can hand deliveries to the given scheduler.
func NewQueue(scheduler *scheduling.TaskScheduler) *Queue {
	q := &Queue{
		subscribers: make(map[string][]Handler),
		scheduler:   scheduler,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Subscribe registers a handler under a message type tag.
func (q *Queue) Subscribe(messageType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.subscribers[messageType] = append(q.subscribers[messageType], handler)
}

// On registers a handler for one concrete message type.
func On[T Message](q *Queue, handler func(T)) {
	var tag T
	q.Subscribe(tag.MessageType(), func(m Message) {
		if typed, ok := m.(T); ok {
			handler(typed)
		}
	})
}

// Publish enqueues a message for delivery.
func (q *Queue) Publish(message Message) {
	q.mu.Lock()
	q.backlog = append(q.backlog, message)
	q.mu.Unlock()
	q.cond.Signal()
}

// SetSendMessagesAsTasks switches delivery from the bus worker to the task
// scheduler. The application enables this after startup so that all handler
// code runs serialized on the scheduler worker.
func (q *Queue) SetSendMessagesAsTasks(asTasks bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.asTasks = asTasks
}

// Pending returns the number of undelivered messages.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}

// StartMessageLoopThreaded launches the delivery worker. Starting a running
// loop is a no-op.
func (q *Queue) StartMessageLoopThreaded() {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.halting = false
	q.mu.Unlock()

	q.done.Add(1)
	go q.loop()
}

// StopMessageLoop drains the backlog and halts the delivery worker. It
// blocks until the worker has exited.
func (q *Queue) StopMessageLoop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.halting = true
	q.mu.Unlock()
	q.cond.Signal()

	q.done.Wait()

	q.mu.Lock()
	q.running = false
	q.mu.Unlock()
}

func (q *Queue) loop() {
	defer q.done.Done()

	for {
		q.mu.Lock()
		for len(q.backlog) == 0 && !q.halting {
			q.cond.Wait()
		}
		if len(q.backlog) == 0 && q.halting {
			q.mu.Unlock()
			return
		}
		message := q.backlog[0]
		q.backlog = q.backlog[1:]
		asTasks := q.asTasks
		q.mu.Unlock()

		if asTasks && q.scheduler != nil {
			q.scheduler.PushTask(func() { q.dispatch(message) })
		} else {
			q.dispatch(message)
		}
	}
}

func (q *Queue) dispatch(message Message) {
	q.mu.Lock()
	handlers := make([]Handler, len(q.subscribers[message.MessageType()]))
	copy(handlers, q.subscribers[message.MessageType()])
	q.mu.Unlock()

	for _, handler := range handlers {
		handler(message)
	}
}
