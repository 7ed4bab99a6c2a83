package com

import (
	"net/http"
	"sync"

	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/network/websocket"
	"github.com/goccy/go-json"
)

type (
	// Connector upgrades incoming viewer sockets into packet clients.
	Connector struct {
		tag string
		wu  *websocket.Upgrader
	}
	// Client is one accepted packet connection.
	Client struct {
		conn     *websocket.WS
		onPacket func(packet In)
		mu       sync.Mutex
	}
)

var outPool = sync.Pool{New: func() any { o := Out{}; return &o }}

func NewConnector(tag string) *Connector {
	return &Connector{tag: tag, wu: &websocket.DefaultUpgrader}
}

// NewServer upgrades an incoming HTTP request into a packet connection.
func (co *Connector) NewServer(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*SocketClient, error) {
	ws, err := co.wu.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	conn := websocket.NewServerWithConn(ws, log)
	client := &Client{conn: conn}
	client.conn.OnMessage = client.handleMessage
	c := New(client, co.tag, NewUid(), log)
	return &c, nil
}

func (c *Client) OnPacket(fn func(packet In)) { c.mu.Lock(); c.onPacket = fn; c.mu.Unlock() }

func (c *Client) Listen() { c.mu.Lock(); c.conn.Listen(); c.mu.Unlock() }

func (c *Client) Close() { c.conn.Close() }

// Send pushes a fire-and-forget packet with no reply address.
func (c *Client) Send(type_ uint8, pl any) error {
	rq := outPool.Get().(*Out)
	rq.Id, rq.T, rq.Payload = "", type_, pl
	defer outPool.Put(rq)
	return c.SendPacket(rq)
}

// Route replies to an incoming packet mirroring its id and type, so
// the other side can match the response to its request.
func (c *Client) Route(p In, pl Out) error {
	rq := outPool.Get().(*Out)
	rq.Id, rq.T, rq.Payload = p.Id.String(), uint8(p.T), pl.Payload
	defer outPool.Put(rq)
	return c.SendPacket(rq)
}

func (c *Client) SendPacket(packet *Out) error {
	r, err := json.Marshal(packet)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn.Write(r)
	c.mu.Unlock()
	return nil
}

func (c *Client) Wait() chan struct{} { return c.conn.Done }

func (c *Client) handleMessage(message []byte, err error) {
	if err != nil {
		return
	}
	var res In
	if err = json.Unmarshal(message, &res); err != nil {
		return
	}
	if c.onPacket != nil {
		c.onPacket(res)
	}
}
