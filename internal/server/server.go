// Package server owns the frame-protocol listener: one net.Listener
// accepting connections and handing each to its own connection.Connection,
// grounded on the teacher's gRPC Server lifecycle (internal/api/grpc) —
// same Start/Stop/Ready shape, a raw TCP accept loop in place of
// grpc.Server.Serve, since the wire protocol here is a hand-rolled framing
// rather than gRPC.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mewbase/mewbase/internal/config"
	"github.com/mewbase/mewbase/internal/connection"
	"github.com/mewbase/mewbase/internal/logger"
	"github.com/mewbase/mewbase/internal/metrics"
	"github.com/mewbase/mewbase/internal/storage/docs"
	"github.com/mewbase/mewbase/internal/storage/durable"
	storagelog "github.com/mewbase/mewbase/internal/storage/log"
)

// Server is the frame-protocol listener plus every collaborator a
// connection needs: the channel registry, the document binder store, and
// the durable-cursor store.
type Server struct {
	cfg *config.Config
	log zerolog.Logger

	registry     *storagelog.Registry
	docsManager  *docs.Manager
	durableStore *durable.Store
	metrics      *metrics.ServerMetrics
	subMetrics   *metrics.SubscriptionMetrics

	listener net.Listener

	mu    sync.Mutex
	ready bool
	conns map[string]*connection.Connection
	wg    sync.WaitGroup
}

// New wires a Server from config, opening the durable-cursor store
// immediately (cheap, local) but leaving the channel registry and docs
// manager to open binders/channels lazily on first use.
func New(cfg *config.Config, collector *metrics.Collector) (*Server, error) {
	var serverMetrics *metrics.ServerMetrics
	var subMetrics *metrics.SubscriptionMetrics
	var channelMetrics *metrics.ChannelMetrics
	var durableMetrics *metrics.DurableCursorMetrics
	if collector != nil {
		serverMetrics = metrics.NewServerMetrics(collector)
		subMetrics = metrics.NewSubscriptionMetrics(collector)
		channelMetrics = metrics.NewChannelMetrics(collector)
		durableMetrics = metrics.NewDurableCursorMetrics(collector)
	}

	durableStore, err := durable.NewStore(cfg.Storage.MetadataDir, durableMetrics)
	if err != nil {
		return nil, fmt.Errorf("server: open durable cursor store: %w", err)
	}

	return &Server{
		cfg:          cfg,
		log:          logger.WithComponent("server"),
		registry:     storagelog.NewRegistry(cfg.Storage.LogsDir, cfg.Storage.MaxLogChunkSize, channelMetrics),
		docsManager:  docs.NewManager(cfg.Storage.DocsDir),
		durableStore: durableStore,
		metrics:      serverMetrics,
		subMetrics:   subMetrics,
		conns:        make(map[string]*connection.Connection),
	}, nil
}

// RegisterQuery exposes the docs manager's named-query registration so
// main can set up QUERY{name} definitions at startup.
func (s *Server) RegisterQuery(name string, q docs.NamedQuery) {
	s.docsManager.RegisterQuery(name, q)
}

// Start opens the listener and begins accepting connections. It returns
// once the listener is open; accepting happens on its own goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.cfg.Server.ListenAddr, err)
	}
	s.listener = listener
	s.ready = true

	s.log.Info().Str("addr", s.cfg.Server.ListenAddr).Msg("frame protocol server listening")

	s.wg.Add(1)
	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := !s.ready
			s.mu.Unlock()
			if stopped {
				return
			}
			s.log.Warn().Err(err).Msg("accept error")
			continue
		}

		// A uuid, not a sequential counter, so a connection id stays
		// globally unique across restarts and identifies the same
		// connection unambiguously in logs and metrics labels — the
		// same reason the teacher mints a uuid per queue job and per
		// consumer group rather than reusing a process-local counter.
		id := uuid.NewString()

		appender := connection.NewRegistryAppender(s.registry)
		deps := connection.Deps{
			Registry:      s.registry,
			DocsManager:   s.docsManager,
			DurableStore:  s.durableStore,
			Appender:      appender,
			InitialCredit: s.cfg.Server.InitialSubscriptionCredit,
			Metrics:       s.metrics,
			SubMetrics:    s.subMetrics,
		}

		c := connection.New(id, conn, deps, s.removeConn)

		s.mu.Lock()
		s.conns[id] = c
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			c.Serve()
		}()
	}
}

func (s *Server) removeConn(c *connection.Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c.ID())
}

// Stop closes the listener, every open connection, and the backing
// storage, waiting for in-flight work to finish.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.ready {
		s.mu.Unlock()
		return nil
	}
	s.ready = false
	conns := make([]*connection.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	if err := s.listener.Close(); err != nil {
		s.log.Warn().Err(err).Msg("error closing listener")
	}

	for _, c := range conns {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := s.registry.CloseAll(); err != nil {
		s.log.Warn().Err(err).Msg("error closing channel registry")
	}
	if err := s.docsManager.Close(); err != nil {
		s.log.Warn().Err(err).Msg("error closing docs manager")
	}

	s.log.Info().Msg("server stopped")
	return nil
}

// Ready returns true if the server is accepting connections.
func (s *Server) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}
