package com

import (
	"github.com/avtools/playout/pkg/api"
	"github.com/avtools/playout/pkg/logger"
	"github.com/rs/xid"
)

type (
	In  = api.In[Uid]
	Out = api.Out
)

// Uid is a sortable globally unique id assigned to every connection.
type Uid struct {
	xid.ID
}

func NewUid() Uid { return Uid{xid.New()} }

// Short renders a compact id for the logs, the first and the last three chars.
func (u Uid) Short() string {
	s := u.String()
	return s[:3] + "." + s[len(s)-3:]
}

type NetClient[K comparable] interface {
	Disconnect()
	Id() K
}

type NetMap[K comparable, T NetClient[K]] struct{ Map[K, T] }

func NewNetMap[K comparable, T NetClient[K]]() NetMap[K, T] {
	return NetMap[K, T]{Map: Map[K, T]{m: make(map[K]T, 10)}}
}

func (m *NetMap[K, T]) Add(client T)              { m.Put(client.Id(), client) }
func (m *NetMap[K, T]) Remove(client T)           { m.RemoveByKey(client.Id()) }
func (m *NetMap[K, T]) RemoveDisconnect(client T) { client.Disconnect(); m.Remove(client) }

// SocketClient is a tagged websocket connection with a packet transport on top.
type SocketClient struct {
	*Client

	id  Uid
	tag string
	log *logger.Logger
}

func New(conn *Client, tag string, id Uid, log *logger.Logger) SocketClient {
	l := log.Extend(log.With().
		Str("cid", id.Short()).
		Str(logger.DirectionField, "←"),
	)
	l.Debug().Msg("connect")
	return SocketClient{Client: conn, id: id, tag: tag, log: l}
}

// ProcessPackets sets the packet handler and starts the connection pumps.
func (c *SocketClient) ProcessPackets(fn func(in In) error) chan struct{} {
	c.OnPacket(func(p In) {
		c.log.Debug().Str(logger.DirectionField, "←").Msgf("%v", p.GetType())
		if err := fn(p); err != nil {
			c.log.Error().Err(err).Msgf("%v failed", p.GetType())
		}
	})
	c.Listen()
	return c.Wait()
}

func (c *SocketClient) Disconnect() {
	c.Close()
	c.log.Debug().Str(logger.DirectionField, "x").Msg("close")
}

func (c *SocketClient) Id() Uid        { return c.id }
func (c *SocketClient) String() string { return c.tag + ":" + c.id.Short() }
