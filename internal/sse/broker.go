// Package sse implements a Server-Sent Events broker that pushes directory
// and configuration changes to connected browsers.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"
)

// Event is a single SSE message.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types.
const (
	TypeMyfileCreated    = "myfile.created"
	TypeMyfileUpdated    = "myfile.updated"
	TypeMyfileDeleted    = "myfile.deleted"
	TypeDirectoryUpdated = "directory.updated"
	TypeConfigReloaded   = "config.reloaded"
)

// Defaults for NewBroker.
const (
	DefaultKeepAlive = 25 * time.Second
	DefaultHistory   = 32
	// RetryMillis is the reconnect delay advertised to clients.
	RetryMillis = 3000

	clientBuffer = 64
)

// Option configures a Broker.
type Option func(*Broker)

// WithKeepAlive sets the interval of the comment frames that keep idle
// streams open through proxies. Zero or less disables them.
func WithKeepAlive(d time.Duration) Option {
	return func(b *Broker) { b.keepAlive = d }
}

// WithHistory sets how many recent frames are kept for Last-Event-ID replay.
func WithHistory(n int) Option {
	return func(b *Broker) {
		if n >= 0 {
			b.historySize = n
		}
	}
}

type frame struct {
	id  uint64
	raw []byte
}

type subscription struct {
	ch    chan []byte
	after uint64
}

type myfileEventReq struct {
	kind string
	name string
}

// Broker manages SSE client connections. All mutable state (clients,
// history, directory throttle) is owned by the run goroutine; public methods
// talk to it over channels.
type Broker struct {
	directoryMin time.Duration
	keepAlive    time.Duration
	historySize  int

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	myfileEventCh chan myfileEventReq
	countReqCh    chan chan int
	stopCh        chan struct{}
	stopped       chan struct{}
	closed        atomic.Bool
}

// NewBroker creates a new SSE broker. directory.updated is sent at most once
// per directoryThrottle.
func NewBroker(directoryThrottle time.Duration, opts ...Option) *Broker {
	if directoryThrottle <= 0 {
		directoryThrottle = 2 * time.Second
	}

	b := &Broker{
		directoryMin:  directoryThrottle,
		keepAlive:     DefaultKeepAlive,
		historySize:   DefaultHistory,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		myfileEventCh: make(chan myfileEventReq, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.historySize > clientBuffer {
		b.historySize = clientBuffer
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	history := make([]frame, 0, b.historySize)
	var lastID uint64
	var lastDirectory time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		lastID++
		f := frame{
			id:  lastID,
			raw: fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", lastID, event.Type, payload),
		}
		if b.historySize > 0 {
			if len(history) == b.historySize {
				history = append(history[:0], history[1:]...)
			}
			history = append(history, f)
		}

		for ch := range clients {
			select {
			case ch <- f.raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = struct{}{}
			if sub.after > 0 {
				for _, f := range history {
					if f.id > sub.after {
						sub.ch <- f.raw
					}
				}
			}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.myfileEventCh:
			data := map[string]string{"name": req.name}
			switch req.kind {
			case "created":
				broadcast(Event{Type: TypeMyfileCreated, Data: data})
			case "updated":
				broadcast(Event{Type: TypeMyfileUpdated, Data: data})
			case "deleted":
				broadcast(Event{Type: TypeMyfileDeleted, Data: data})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastDirectory) >= b.directoryMin {
				lastDirectory = now
				broadcast(Event{Type: TypeDirectoryUpdated, Data: map[string]string{}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeFrom(0)
}

// SubscribeFrom adds a new client that first receives the retained frames
// with an id greater than lastID. Zero means no replay.
func (b *Broker) SubscribeFrom(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, after: lastID}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishMyfileEvent publishes a record change and a throttled
// directory.updated event. kind is "created", "updated" or "deleted".
func (b *Broker) PublishMyfileEvent(kind, name string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.myfileEventCh <- myfileEventReq{kind: kind, name: name}:
	case <-b.stopped:
	}
}

// PublishConfigReloaded tells clients that a new configuration snapshot is active.
func (b *Broker) PublishConfigReloaded(version uint64) {
	b.Publish(Event{Type: TypeConfigReloaded, Data: map[string]uint64{"version": version}})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). A reconnecting
// client sending Last-Event-ID gets the frames it missed, as far as the
// history reaches.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", RetryMillis)
	flusher.Flush()

	ch := b.SubscribeFrom(lastID)
	defer b.Unsubscribe(ch)

	var ping <-chan time.Time
	if b.keepAlive > 0 {
		t := time.NewTicker(b.keepAlive)
		defer t.Stop()
		ping = t.C
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
