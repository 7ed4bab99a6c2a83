package httpx

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/avtools/playout/pkg/logger"
	"golang.org/x/crypto/acme/autocert"
)

type Server struct {
	http.Server

	autoCert *autocert.Manager
	opts     Options

	listener *Listener
	redirect *Server
	log      *logger.Logger
}

type (
	Mux struct {
		*http.ServeMux
		prefix string
	}
	Handler        = http.Handler
	HandlerFunc    = http.HandlerFunc
	ResponseWriter = http.ResponseWriter
	Request        = http.Request
)

// NewServeMux allocates a mux prepending the prefix to every mounted path.
func NewServeMux(prefix string) *Mux {
	return &Mux{ServeMux: http.NewServeMux(), prefix: prefix}
}

func (m *Mux) Handle(pattern string, handler Handler) *Mux {
	m.ServeMux.Handle(m.prefix+pattern, handler)
	return m
}

func (m *Mux) HandleFunc(pattern string, handler func(ResponseWriter, *Request)) *Mux {
	m.ServeMux.HandleFunc(m.prefix+pattern, handler)
	return m
}

func NewServer(address string, handler func(*Server) Handler, options ...Option) (*Server, error) {
	opts := &Options{
		HttpsRedirect: true,
		IdleTimeout:   120 * time.Second,
		ReadTimeout:   500 * time.Second,
		WriteTimeout:  500 * time.Second,
	}
	opts.override(options...)
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}

	server := &Server{
		Server: http.Server{
			Addr:         address,
			ErrorLog:     opts.Logger.Wrap(),
			IdleTimeout:  opts.IdleTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		opts: *opts,
		log:  opts.Logger,
	}
	// the handler builder takes a ref to the still unfinished server
	server.Handler = handler(server)

	if opts.Https && opts.IsAutoHttpsCert() {
		server.autoCert = newCertManager(withZonePrefix(opts.HttpsDomain, opts.Zone))
		server.TLSConfig = server.autoCert.TLSConfig()
	}

	addr := server.Addr
	if addr == "" {
		if addr = ":http"; opts.Https {
			addr = ":https"
		}
		server.log.Warn().Msgf("the empty server address became %v", addr)
	}
	listener, err := NewListener(addr, opts.PortRoll)
	if err != nil {
		return nil, err
	}
	server.listener = listener

	addr = buildAddress(server.Addr, opts.Zone, *listener)
	server.log.Info().Msgf("%v server address is %v (%v)", server.protocol(), addr, server.Addr)
	server.Addr = addr

	return server, nil
}

func (s *Server) Run() { go s.run() }

func (s *Server) run() {
	protocol := s.protocol()
	s.log.Debug().Msgf("%v server starts on %v", protocol, s.Addr)

	if s.opts.Https && s.opts.HttpsRedirect {
		redirect, err := s.newRedirectServer()
		if err != nil {
			s.log.Error().Err(err).Msg("couldn't init the redirect server")
		} else {
			s.redirect = redirect
			s.redirect.Run()
		}
	}

	serve := func() error { return s.Serve(*s.listener) }
	if s.opts.Https {
		serve = func() error { return s.ServeTLS(*s.listener, s.opts.HttpsCert, s.opts.HttpsKey) }
	}
	if err := serve(); err == http.ErrServerClosed {
		s.log.Debug().Msgf("%v server was closed", protocol)
	} else {
		s.log.Error().Err(err).Msgf("%v server was stopped", protocol)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.redirect != nil {
		_ = s.redirect.Shutdown(ctx)
	}
	return s.Server.Shutdown(ctx)
}

func (s *Server) protocol() string {
	if s.opts.Https {
		return "https"
	}
	return "http"
}

// newRedirectServer serves redirects from the plain http port to the
// main https address, with the ACME challenge handler on top when
// automatic certificates are on.
func (s *Server) newRedirectServer() (*Server, error) {
	address := s.Addr
	if s.opts.HttpsDomain != "" {
		address = s.opts.HttpsDomain
	}
	target := buildAddress(address, s.opts.Zone, *s.listener)

	srv, err := NewServer(s.opts.HttpsRedirectAddress, func(serv *Server) Handler {
		h := NewServeMux("")
		h.HandleFunc("/", func(w ResponseWriter, r *Request) {
			to := url.URL{Scheme: "https", Host: target, Path: r.URL.Path, RawQuery: r.URL.RawQuery}
			s.log.Debug().Msgf("redirect http://%v%v to %v", r.Host, r.URL, to.String())
			http.Redirect(w, r, to.String(), http.StatusFound)
		})
		if serv.autoCert != nil {
			return serv.autoCert.HTTPHandler(h)
		}
		return h
	}, WithLogger(s.log))
	s.log.Info().Msgf("the https redirect goes to %v", target)
	return srv, err
}
