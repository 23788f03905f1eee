package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/DocChat/internal/adapter/utils"
	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/handlers"
	"github.com/akolanti/DocChat/internal/middleware"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

var _logger = logger_i.NewLogger("Server")

type Server struct {
	httpServer *http.Server
}

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    func()
}

// Routes builds the router. mcpHandler may be nil.
func Routes(h *handlers.Handler, mw *middleware.Middleware, mcpHandler http.Handler) http.Handler {
	r := utils.NewRouter(middleware.CORS)

	r.Router.Get("/health", mw.WrapPublic(h.GetHealth))
	r.Router.Post("/chat", mw.Wrap(h.Chat))
	r.Router.Post("/upload-docs", mw.Wrap(h.UploadDocs))
	r.Router.Get("/list-docs", mw.Wrap(h.ListDocs))
	r.Router.Delete("/delete-docs/{file_id}", mw.Wrap(h.DeleteDoc))
	if mcpHandler != nil {
		r.Router.Handle("/mcp", mw.Wrap(mcpHandler.ServeHTTP))
	}
	return r.Router
}

func CreateServer(listenAddr string, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:         listenAddr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}}
}

func (s *Server) ListenAndServe() {
	_logger.Info("Server is listening at", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err, "addr", s.httpServer.Addr)
	}
}

// ShutDownHandler waits for a signal, then stops HTTP, drains the workers and
// closes the stores, in that order.
func (s *Server) ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		s.httpServer.SetKeepAlivesEnabled(false)

		if err := s.httpServer.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "error", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Error("Forced shut down, workers did not finish in time")
	}
	close(shutdownParams.StopExecution)
}
