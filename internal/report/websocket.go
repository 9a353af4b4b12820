package report

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultWriteTimeout bounds each websocket frame write.
const DefaultWriteTimeout = 5 * time.Second

// Envelope is the wire form of one viewer frame. Several battles can share a viewer, so
// every event carries the battle it came from.
type Envelope struct {
	BattleID string `json:"battle_id"`
	Event    Event  `json:"event"`
}

// BattleScoped is implemented by sinks that are shared between battles and need each
// battle's events tagged.
type BattleScoped interface {
	ForBattle(id string) Sink
}

// WebSocketSink streams events as JSON envelopes to a live viewer.
// The connection is owned by the caller; the sink never closes it.
type WebSocketSink struct {
	mu      sync.Mutex
	conn    *websocket.Conn
	timeout time.Duration
	now     func() time.Time
	sent    int
	err     error
}

// NewWebSocketSink wraps an established connection.
func NewWebSocketSink(conn *websocket.Conn) *WebSocketSink {
	return &WebSocketSink{conn: conn, timeout: DefaultWriteTimeout, now: time.Now}
}

// Report writes the event with an empty battle id.
func (s *WebSocketSink) Report(ev Event) {
	s.write("", ev)
}

// ForBattle returns a view of the sink that tags every event with id. Views share the
// connection, the counters and the first error.
func (s *WebSocketSink) ForBattle(id string) Sink {
	return battleView{sink: s, id: id}
}

type battleView struct {
	sink *WebSocketSink
	id   string
}

func (v battleView) Report(ev Event) {
	v.sink.write(v.id, ev)
}

// write sends one envelope. After the first failure every later event is dropped so a
// broken viewer cannot slow resolution down.
func (s *WebSocketSink) write(battleID string, ev Event) {
	if s == nil || s.conn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	//1.- Bound the write so a stalled peer cannot block the battle.
	if err := s.conn.SetWriteDeadline(s.now().Add(s.timeout)); err != nil {
		s.err = err
		return
	}
	if err := s.conn.WriteJSON(Envelope{BattleID: battleID, Event: ev}); err != nil {
		s.err = err
		return
	}
	s.sent++
}

// Sent reports how many events were delivered.
func (s *WebSocketSink) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Err returns the first write failure, if any.
func (s *WebSocketSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
