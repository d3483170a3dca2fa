package watch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// Subscriber subscribes to a core NATS subject. *nats.Conn satisfies it.
type Subscriber interface {
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Notification is the optional JSON body of an update message. An empty
// body means "the provenance graph changed".
type Notification struct {
	Graph string `json:"graph,omitempty"`
}

// NATSTrigger emits an Event for each update notification on a subject.
type NATSTrigger struct {
	nc      Subscriber
	subject string
	graph   string
	logger  *slog.Logger

	mu     sync.Mutex
	sub    *nats.Subscription
	events chan Event
	closed bool

	droppedEvents atomic.Int64
}

// NewNATSTrigger creates a trigger for subject. Notifications naming a
// graph other than graph are ignored.
func NewNATSTrigger(nc Subscriber, subject, graph string, logger *slog.Logger) *NATSTrigger {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSTrigger{
		nc:      nc,
		subject: subject,
		graph:   graph,
		logger:  logger,
		events:  make(chan Event, eventChannelBuffer),
	}
}

// Events returns the channel of trigger events. It is closed by Stop.
func (t *NATSTrigger) Events() <-chan Event {
	return t.events
}

// Start subscribes to the notification subject.
func (t *NATSTrigger) Start() error {
	if t.subject == "" {
		return errors.New("no notification subject configured")
	}
	sub, err := t.nc.Subscribe(t.subject, t.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", t.subject, err)
	}
	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()

	t.logger.Info("Listening for provenance updates", "subject", t.subject)
	return nil
}

// Stop unsubscribes and closes the events channel.
func (t *NATSTrigger) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.events)

	if t.sub == nil {
		return nil
	}
	if err := t.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) && !errors.Is(err, nats.ErrBadSubscription) {
		return fmt.Errorf("unsubscribe %s: %w", t.subject, err)
	}
	return nil
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (t *NATSTrigger) DroppedEvents() int64 {
	return t.droppedEvents.Load()
}

func (t *NATSTrigger) handle(msg *nats.Msg) {
	if len(msg.Data) > 0 {
		var n Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			t.logger.Warn("Ignoring malformed provenance notification",
				"subject", msg.Subject,
				"error", err)
			return
		}
		if n.Graph != "" && t.graph != "" && n.Graph != t.graph {
			t.logger.Debug("Ignoring notification for another graph", "graph", n.Graph)
			return
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	select {
	case t.events <- Event{Reason: ReasonNATS, At: time.Now()}:
	default:
		dropped := t.droppedEvents.Add(1)
		t.logger.Warn("Event channel full, dropping notification", "total_dropped", dropped)
	}
}
