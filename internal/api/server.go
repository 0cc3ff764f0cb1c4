package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"voxclip/internal/catalog"
	"voxclip/internal/config"
	"voxclip/internal/logging"
	"voxclip/internal/pipeline"
)

// Service is the subset of the pipeline the HTTP adapter drives.
type Service interface {
	Split(ctx context.Context, req pipeline.SplitRequest) (pipeline.SplitResult, error)
	Transcribe(ctx context.Context, req pipeline.TranscribeRequest) (pipeline.TranscribeResult, error)
	Save(ctx context.Context, req pipeline.SaveRequest) (pipeline.SaveResult, error)
	Status(ctx context.Context, videoID string) (pipeline.StatusResult, error)
	ClipBytes(ctx context.Context, videoID, clipName string) ([]byte, error)
	Playlist(ctx context.Context, req pipeline.PlaylistRequest) (pipeline.PlaylistResult, error)
	Channels(ctx context.Context) ([]catalog.Channel, error)
	AddChannel(ctx context.Context, req pipeline.ChannelRequest) (catalog.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
}

// Option customizes a Server.
type Option func(*Server)

// WithHealthCheck adds a readiness check to GET /health. A failing check
// turns the response into 503.
func WithHealthCheck(name string, check func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.healthName = name
		s.health = check
	}
}

// Server serves the HTTP API.
type Server struct {
	svc        Service
	cfg        config.API
	logger     *slog.Logger
	engine     *gin.Engine
	healthName string
	health     func(ctx context.Context) error
}

// NewServer builds the gin engine and registers every route.
func NewServer(svc Service, cfg *config.Config, logger *slog.Logger, opts ...Option) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		svc:    svc,
		cfg:    cfg.API,
		logger: logging.NewComponentLogger(logger, "api"),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(requestID(), s.recovery(), s.requestLogger())
	engine.GET("/health", s.handleHealth)

	v1 := engine.Group("/api/v1", s.bearerAuth(s.cfg.Token), bodyLimit(int64(s.cfg.MaxRequestBodyKiB)*1024))
	v1.POST("/split", s.handleSplit)
	v1.POST("/transcribe", s.handleTranscribe)
	v1.POST("/save", s.handleSave)
	v1.POST("/extract-video-id", s.handleExtractVideoID)
	v1.GET("/videos/:id", s.handleStatus)
	v1.GET("/videos/:id/clips/:name", s.handleClip)
	v1.POST("/playlist-videos", s.handlePlaylist)
	v1.GET("/channels", s.handleListChannels)
	v1.POST("/channels", s.handleAddChannel)
	v1.DELETE("/channels/:id", s.handleDeleteChannel)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{Error: ErrorDetail{
			Kind:      "not_found",
			Message:   "no route for " + c.Request.Method + " " + c.Request.URL.Path,
			RequestID: c.GetString(requestIDKey),
		}})
	})
	s.engine = engine
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe binds the configured address and serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx ends, then drains
// in-flight requests for the configured grace period.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(s.cfg.ReadTimeoutSeconds) * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.Bool("auth", s.cfg.Token != ""),
		logging.String(logging.FieldEventType, "api_listening"),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	grace := time.Duration(s.cfg.ShutdownGraceSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	s.logger.Info("api server stopping", logging.Duration("grace", grace))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api serve: %w", err)
	}
	return nil
}
