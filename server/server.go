// Package server exposes the public HTTP API of the relayer: the relay
// endpoint itself plus a health probe, with CORS, body limits, request
// logging and panic recovery at the boundary.
package server

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/digijoe7/mezo-relayer/logging"
	"github.com/digijoe7/mezo-relayer/relayer"
)

// Config contains the HTTP boundary settings.
type Config struct {
	// ListenAddr is the address the API listens on.
	ListenAddr string

	// CORSAllowedOrigin is the single origin allowed by CORS.
	// "*" permits all origins.
	CORSAllowedOrigin string
}

// Relayer is the pipeline surface the HTTP boundary consumes.
type Relayer interface {
	Relay(ctx context.Context, req *relayer.RelayRequest) (*relayer.RelayResult, error)
	RelayerAddress() common.Address
	ChainID() int64
	RelayerBalance(ctx context.Context) (*big.Int, error)
}

// Server is the public HTTP API server.
type Server struct {
	logger  logging.Logger
	config  Config
	relayer Relayer
	engine  *gin.Engine
	httpSrv *http.Server

	mu     sync.Mutex
	closed bool
}

// NewServer builds the API server and its route table.
func NewServer(logger logging.Logger, config Config, pipeline Relayer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		logger:  logging.ForComponent(logger, logging.ComponentHTTPServer),
		config:  config,
		relayer: pipeline,
		engine:  gin.New(),
	}

	s.engine.Use(
		RequestLogger(s.logger),
		Recovery(s.logger),
		CORS(config.CORSAllowedOrigin),
		BodyLimit(relayer.MaxBodyBytes),
	)

	s.engine.GET("/health", s.handleHealth)
	s.engine.POST("/relay", s.handleRelay)

	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start binds the listen address and begins serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("server is closed")
	}

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}

	s.httpSrv = &http.Server{Handler: s.engine}

	go func() {
		if err := s.httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("http server terminated")
		}
	}()

	s.logger.Info().
		Str(logging.FieldListenAddr, listener.Addr().String()).
		Str("cors_allowed_origin", s.config.CORSAllowedOrigin).
		Msg("http server started")

	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
	}

	s.logger.Info().Msg("http server stopped")
	return nil
}
