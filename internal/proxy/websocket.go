package proxy

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/tobsdb/tdbstore/internal/event"
	"github.com/tobsdb/tdbstore/internal/store"
	"github.com/tobsdb/tdbstore/pkg"
)

var ErrRelayClosed = errors.New("websocket relay closed")

var Upgrader = websocket.Upgrader{
	WriteBufferSize: 1024 * 10,
	ReadBufferSize:  1024 * 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Envelope is the JSON message sent for every relayed event.
type Envelope struct {
	Event    string         `json:"event"`
	Record   map[string]any `json:"record,omitempty"`
	Field    string         `json:"field,omitempty"`
	Old      any            `json:"old,omitempty"`
	New      any            `json:"new,omitempty"`
	Index    int            `json:"index"`
	Checksum string         `json:"checksum,omitempty"`
}

func NewEnvelope(name string, e store.Event) Envelope {
	env := Envelope{
		Event: name,
		Field: e.Field,
		Old:   e.Old,
		New:   e.New,
		Index: e.Index,
	}
	if e.Record != nil {
		env.Record = e.Record.Data()
		env.Checksum = e.Record.Fingerprint()
	}
	if e.Snapshot != nil {
		env.Checksum = e.Snapshot.Checksum
	}
	return env
}

// WebSocket relays every event of its targets to a websocket peer. Write
// failures detach the relay; the first one is kept in Err.
type WebSocket struct {
	conn   *websocket.Conn
	locker sync.Mutex
	off    []func()
	err    error
}

func NewWebSocket(conn *websocket.Conn) *WebSocket {
	return &WebSocket{conn: conn}
}

// Upgrade accepts a websocket handshake and returns a relay over it.
func Upgrade(w http.ResponseWriter, r *http.Request) (*WebSocket, error) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, errors.Wrap(err, "websocket upgrade")
	}
	return NewWebSocket(conn), nil
}

func (ws *WebSocket) Init(target store.Observable) error {
	ws.locker.Lock()
	defer ws.locker.Unlock()
	if ws.err != nil {
		return ws.err
	}
	ws.off = append(ws.off, target.On(event.Wildcard, ws.relay))
	return nil
}

func (ws *WebSocket) relay(name string, e store.Event) {
	env := NewEnvelope(name, e)

	ws.locker.Lock()
	defer ws.locker.Unlock()
	if ws.err != nil {
		return
	}
	if err := ws.conn.WriteJSON(env); err != nil {
		ws.err = errors.Wrapf(err, "relaying %s", name)
		pkg.ErrorLog(ws.err)
		ws.detach()
	}
}

// must hold lock
func (ws *WebSocket) detach() {
	off := ws.off
	ws.off = nil
	// the bus copies its handler list before dispatch
	for _, fn := range off {
		fn()
	}
}

func (ws *WebSocket) Err() error {
	ws.locker.Lock()
	defer ws.locker.Unlock()
	return ws.err
}

// Close detaches the relay and closes the connection with a normal closure.
func (ws *WebSocket) Close() error {
	ws.locker.Lock()
	defer ws.locker.Unlock()
	ws.detach()
	if ws.err == nil {
		ws.err = ErrRelayClosed
	}
	ws.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return ws.conn.Close()
}
