package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/avtools/playout/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 10 * 1024
	pingTime       = pongTime * 9 / 10
	pongTime       = 60 * time.Second
	writeWait      = 10 * time.Second
)

type WSMessageHandler func(message []byte, err error)

type WS struct {
	OnMessage WSMessageHandler

	// done gets closed after both pumps stop
	Done chan struct{}

	sock     *websocket.Conn
	send     chan []byte
	stop     chan struct{}
	once     sync.Once
	shutdown sync.WaitGroup
	log      *logger.Logger
}

type Upgrader struct {
	websocket.Upgrader
}

var DefaultUpgrader = Upgrader{
	Upgrader: websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		WriteBufferPool: &sync.Pool{},
		CheckOrigin:     func(r *http.Request) bool { return true },
	},
}

// NewServerWithConn wraps an already upgraded connection.
func NewServerWithConn(conn *websocket.Conn, log *logger.Logger) *WS {
	return &WS{
		Done: make(chan struct{}),
		sock: conn,
		send: make(chan []byte),
		stop: make(chan struct{}),
		log:  log.Mod("ws"),
	}
}

// Listen starts the read and write pumps of the connection.
// The Done channel gets closed when both pumps stop.
func (ws *WS) Listen() {
	ws.shutdown.Add(2)
	go ws.reader()
	go ws.writer()
	go func() {
		<-ws.stop
		_ = ws.closeFrame()
		_ = ws.sock.Close()
	}()
	go func() {
		ws.shutdown.Wait()
		close(ws.Done)
	}()
}

// reader pumps messages from the websocket connection to the OnMessage callback.
// Serializes all websocket reads.
func (ws *WS) reader() {
	defer func() {
		ws.shutdown.Done()
		ws.cancel()
	}()
	ws.sock.SetReadLimit(maxMessageSize)
	_ = ws.sock.SetReadDeadline(time.Now().Add(pongTime))
	ws.sock.SetPongHandler(func(string) error { return ws.sock.SetReadDeadline(time.Now().Add(pongTime)) })
	for {
		_, message, err := ws.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.log.Error().Err(err).Msg("read fail")
			}
			return
		}
		if ws.OnMessage != nil {
			ws.OnMessage(message, err)
		}
	}
}

// writer pumps messages from the send channel to the websocket connection.
// Serializes all websocket writes and keeps the peer alive with pings.
func (ws *WS) writer() {
	ticker := time.NewTicker(pingTime)
	defer func() {
		ticker.Stop()
		ws.shutdown.Done()
		ws.cancel()
	}()
	for {
		select {
		case message := <-ws.send:
			if err := ws.write(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ws.stop:
			return
		}
	}
}

// write pushes one message with a deadline. Only for the writer pump.
func (ws *WS) write(t int, data []byte) error {
	if err := ws.sock.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return ws.sock.WriteMessage(t, data)
}

// closeFrame sends the close control message.
// Safe to call concurrently with the write pump.
func (ws *WS) closeFrame() error {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	return ws.sock.WriteControl(websocket.CloseMessage, message, time.Now().Add(writeWait))
}

// Write queues a message for the send pump.
// Messages are dropped when the connection is closed.
func (ws *WS) Write(data []byte) {
	select {
	case ws.send <- data:
	case <-ws.stop:
	}
}

func (ws *WS) Close() { ws.cancel() }

func (ws *WS) cancel() { ws.once.Do(func() { close(ws.stop) }) }
