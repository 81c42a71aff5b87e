package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docqa/config"
	"docqa/internal/adapter/embedding"
	"docqa/internal/port"
	"docqa/internal/usecase"
	"docqa/pkg/logger"
)

// Server is the HTTP boundary. All domain behavior lives in the use cases;
// handlers only translate between HTTP and domain types.
type Server struct {
	cfg       config.ServerConfig
	ingestor  *usecase.Ingestor
	assembler *usecase.Assembler
	engine    *usecase.Engine
	store     port.ChunkStore
	provider  *embedding.Provider
	log       logger.Logger

	httpSrv *http.Server
}

func NewServer(
	cfg config.ServerConfig,
	ingestor *usecase.Ingestor,
	assembler *usecase.Assembler,
	engine *usecase.Engine,
	store port.ChunkStore,
	provider *embedding.Provider,
	log logger.Logger,
) *Server {
	return &Server{
		cfg:       cfg,
		ingestor:  ingestor,
		assembler: assembler,
		engine:    engine,
		store:     store,
		provider:  provider,
		log:       log,
	}
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), corsMiddleware())
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", s.handleHealth)
		v1.POST("/documents", s.handleUpload)
		v1.GET("/documents", s.handleListDocuments)
		v1.POST("/search", s.handleSearch)
		v1.POST("/chat", s.handleChat)
	}
	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", logger.String("addr", s.cfg.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.log.Info("shutting down http server")
	return s.httpSrv.Shutdown(shutdownCtx)
}
