package client

import (
	"sync"

	"github.com/newtron-network/saimeta/pkg/audit"
	"github.com/newtron-network/saimeta/pkg/meta"
	"github.com/newtron-network/saimeta/pkg/sai"
	"github.com/newtron-network/saimeta/pkg/util"
)

// DefaultQueueSize is the notification queue bound.
const DefaultQueueSize = 1000

// NotificationProcessor delivers notifications on one goroutine. The
// channel's listener enqueues; the processor applies each event to the
// metadata inside the guarded region and then calls the application
// handler outside it. When the queue is full the oldest event is dropped.
type NotificationProcessor struct {
	guard   *meta.Guarded
	metrics *metrics
	record  func(*audit.Event)
	observe func(sai.Notification, error)
	size    int

	mu      sync.Mutex
	queue   []sai.Notification
	wake    chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
	stopped bool
}

func newNotificationProcessor(g *meta.Guarded, size int, m *metrics, record func(*audit.Event), observe func(sai.Notification, error)) *NotificationProcessor {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &NotificationProcessor{
		guard:   g,
		metrics: m,
		record:  record,
		observe: observe,
		size:    size,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Enqueue queues n. It never blocks.
func (p *NotificationProcessor) Enqueue(n sai.Notification) {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	if len(p.queue) >= p.size {
		old := p.queue[0]
		p.queue = p.queue[1:]
		p.metrics.notificationsDropped.Inc()
		util.WithSwitch(old.SwitchID()).Warnf("notification queue full (%d), dropped %s", p.size, old.Kind())
	}
	p.queue = append(p.queue, n)
	p.metrics.notificationQueue.Set(float64(len(p.queue)))
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of queued notifications.
func (p *NotificationProcessor) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Start launches the delivery goroutine. Calling it twice has no effect.
func (p *NotificationProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	p.wg.Add(1)
	go p.run()
}

// Stop ends delivery. Queued notifications are discarded.
func (p *NotificationProcessor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.done)
	p.wg.Wait()
}

func (p *NotificationProcessor) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case <-p.wake:
		}
		for {
			n, ok := p.next()
			if !ok {
				break
			}
			p.process(n)
			select {
			case <-p.done:
				return
			default:
			}
		}
	}
}

func (p *NotificationProcessor) next() (sai.Notification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return nil, false
	}
	n := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.metrics.notificationQueue.Set(float64(len(p.queue)))
	return n, true
}

// process applies n and hands it to the registered handler.
func (p *NotificationProcessor) process(n sai.Notification) {
	var handler sai.NotificationHandler
	err := p.guard.Do(func(m *meta.Meta) error {
		if err := m.ProcessNotification(n); err != nil {
			return err
		}
		handler = m.NotificationHandler(n)
		return nil
	})

	p.metrics.notifications.WithLabelValues(n.Kind().String()).Inc()
	if p.record != nil {
		p.record(audit.NewEvent(audit.OpNotification, nil).
			WithSwitch(n.SwitchID()).
			WithAttrs(map[string]string{"kind": n.Kind().String()}).
			WithResult(err))
	}
	if err != nil {
		util.WithSwitch(n.SwitchID()).Warnf("notification %s not processed: %v", n.Kind(), err)
	} else if handler != nil {
		handler(n)
	}
	if p.observe != nil {
		p.observe(n, err)
	}
}
