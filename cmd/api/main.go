// @title           Document Chat RAG API
// @version         1.0
// @description     Upload documents and ask questions answered from their content.
// @termsOfService  http://swagger.io/terms/

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/DocChat/internal/config"
	jobmodel "github.com/akolanti/DocChat/internal/domain/jobModel"
	"github.com/akolanti/DocChat/internal/handlers"
	"github.com/akolanti/DocChat/internal/job"
	"github.com/akolanti/DocChat/internal/mcpServer"
	"github.com/akolanti/DocChat/internal/middleware"
	"github.com/akolanti/DocChat/internal/server"
	"github.com/akolanti/DocChat/internal/worker"
	"github.com/akolanti/DocChat/pkg/logger_i"
)

var (
	configPath        string
	listenAddr        string
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	flag.StringVar(&configPath, "config", "", "optional YAML config file")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address, overrides the config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	logger_i.Init(cfg.IsProd, cfg.SlogLevel())
	var logger = logger_i.NewLogger("main")
	for _, fallback := range cfg.Fallbacks {
		logger.Warn("backend fallback applied", "detail", fallback)
	}

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	services, err := buildServices(serviceContext, cfg)
	if err != nil {
		logger.Error("One or more services failed to initialize. Shutting down.", "error", err)
		os.Exit(1)
	}

	//init buffered job channel
	jobService := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobmodel.Job, config.BufferLimit),
		DispatcherChannel: make(chan bool, 1),
	})
	logger.Info("Starting job service")

	//init worker pool
	stopWorkerChannel = make(chan bool)
	worker.NewPool(jobService, services.rag, stopWorkerChannel, &workerWaitGroup).Start()

	handler := handlers.NewHandler(jobService, services.rag, cfg.UploadDir)
	routes := server.Routes(handler, middleware.New(cfg), mcpServer.NewServer(services.rag).Handler())
	srv := server.CreateServer(cfg.ListenAddr, routes)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices: func() {
			closeExternalServices()
			services.close()
		},
	}
	go srv.ShutDownHandler(shutdownParams)
	go srv.ListenAndServe()

	<-stopExecution
	logger.Info("Server stopped")
}
