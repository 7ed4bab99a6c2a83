package session

import (
	"context"

	"github.com/avtools/playout/pkg/com"
	"github.com/avtools/playout/pkg/config"
	"github.com/avtools/playout/pkg/library"
	"github.com/avtools/playout/pkg/logger"
	"github.com/avtools/playout/pkg/network/httpx"
	"github.com/avtools/playout/pkg/network/webrtc"
)

// Hub is the viewer-facing front of the playout service: one HTTP
// server carrying the signaling socket and the still preview, with
// the control dispatch on top.
type Hub struct {
	conf    config.PlayoutConfig
	log     *logger.Logger
	session *Session
	lib     library.SessionLibrary
	conn    *com.Connector
	api     *webrtc.ApiFactory
	server  *httpx.Server
}

func NewHub(conf config.PlayoutConfig, session *Session, lib library.SessionLibrary, log *logger.Logger) (*Hub, error) {
	api, err := webrtc.NewApiFactory(conf.Webrtc, log, nil)
	if err != nil {
		return nil, err
	}
	h := &Hub{
		conf:    conf,
		log:     log,
		session: session,
		lib:     lib,
		conn:    com.NewConnector("v"),
		api:     api,
	}
	h.server, err = httpx.NewServer(
		conf.Playout.GetAddr(),
		func(*httpx.Server) httpx.Handler {
			mux := httpx.NewServeMux("")
			mux.HandleFunc("/websocket", h.connect)
			mux.Handle("/preview.jpg", session.Preview())
			return mux
		},
		httpx.WithServerConfig(conf.Playout.Server),
		httpx.WithPortRoll(true),
		httpx.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hub) Run() { h.server.Run() }

func (h *Hub) Shutdown(ctx context.Context) error {
	h.session.DropViewers()
	h.session.Shutdown()
	return h.server.Shutdown(ctx)
}

// connect upgrades one viewer socket and pumps its packets until the
// connection dies.
func (h *Hub) connect(w httpx.ResponseWriter, r *httpx.Request) {
	sock, err := h.conn.NewServer(w, r, h.log)
	if err != nil {
		h.log.Error().Err(err).Msg("socket upgrade fail")
		return
	}
	v := NewViewer(*sock)
	h.session.AddViewer(v)
	defer h.session.RemoveViewer(v)
	<-h.handleViewer(v)
}
