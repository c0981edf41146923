package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codejudge/internal/common/broker"
	"codejudge/internal/common/db"
	commonmw "codejudge/internal/common/http/middleware"
	"codejudge/internal/common/storage"
	"codejudge/internal/judge/bridge"
	"codejudge/internal/judge/controller"
	"codejudge/internal/judge/executor"
	"codejudge/internal/judge/language"
	"codejudge/internal/judge/observer"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/sandbox"
	"codejudge/internal/judge/service"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/logger"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConfigPath = "configs/judge_worker.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	boxID := flag.Int("box-id", -1, "Override isolate box id")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}
	if *boxID >= 0 {
		appCfg.Sandbox.Isolate.BoxID = *boxID
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "judge worker stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx := context.Background()

	registry := broker.NewRegistry()
	defer func() {
		_ = registry.Close()
	}()
	err := registry.Connect(map[broker.Role]*broker.RedisConfig{
		broker.RoleIngress: &appCfg.Brokers.Ingress,
		broker.RoleLocal:   &appCfg.Brokers.Local,
	})
	if err != nil {
		return fmt.Errorf("init brokers failed: %w", err)
	}
	if err := registry.Ping(ctx); err != nil {
		return fmt.Errorf("ping brokers failed: %w", err)
	}
	ingress := registry.MustGet(broker.RoleIngress)
	local := registry.MustGet(broker.RoleLocal)

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		return fmt.Errorf("init database failed: %w", err)
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	var archive *repository.SourceArchive
	if appCfg.MinIO.Enabled() {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			return fmt.Errorf("init minio failed: %w", err)
		}
		archive = repository.NewSourceArchive(objStorage, appCfg.MinIO.Bucket)
	} else {
		logger.Warn(ctx, "minio endpoint not configured, source archive disabled")
	}

	languages, err := language.NewRegistry(appCfg.Language)
	if err != nil {
		return fmt.Errorf("init language registry failed: %w", err)
	}

	isolate := sandbox.NewIsolate(appCfg.Sandbox.Isolate, nil)
	box, err := isolate.Init(ctx)
	if err != nil {
		return fmt.Errorf("init sandbox box failed: %w", err)
	}
	defer func() {
		if err := isolate.Cleanup(context.Background()); err != nil {
			logger.Warn(context.Background(), "sandbox cleanup failed", zap.Error(err))
		}
	}()

	metrics := observer.NewPrometheus()
	exec := executor.New(isolate, box, appCfg.Sandbox.Limits, metrics)
	statusRepo := repository.NewStatusRepository(ingress, appCfg.Bridge.StatusTTL)
	submissionRepo := repository.NewSubmissionRepository(mysqlDB)

	processor, err := service.NewProcessor(service.Config{
		Stages:    exec,
		Languages: languages,
		Progress:  statusRepo,
		Metrics:   metrics,
		NewID:     uuid.NewString,
	})
	if err != nil {
		return fmt.Errorf("init processor failed: %w", err)
	}

	queues := appCfg.Queues
	fetcher := &bridge.Fetcher{
		Local:    local,
		Queue:    queues.LocalSubmission,
		Pending:  submissionRepo,
		Statuses: statusRepo,
		NewID:    uuid.NewString,
	}
	if archive != nil {
		fetcher.Archive = archive
	}
	consumer := &bridge.Consumer{Grader: processor, Local: local, Queue: queues.LocalResult}
	aggregator := &bridge.Aggregator{
		Verdicts:  submissionRepo,
		Statuses:  statusRepo,
		Publisher: repository.NewChannelResultPublisher(ingress, queues.ResultChannel),
	}
	loops := []*bridge.Loop{
		{Name: "fetcher", Queue: queues.Submission, Handle: fetcher.Handle},
		{Name: "consumer", Queue: queues.LocalSubmission, Handle: consumer.Handle},
		{Name: "aggregator", Queue: queues.LocalResult, Handle: aggregator.Handle},
	}
	popConfigs := []*broker.RedisConfig{&appCfg.Brokers.Ingress, &appCfg.Brokers.Local, &appCfg.Brokers.Local}
	for i, loop := range loops {
		source, err := broker.NewRedisBroker(popConfigs[i].Dedicated())
		if err != nil {
			return fmt.Errorf("init %s pop connection failed: %w", loop.Name, err)
		}
		// Closing twice only returns ErrClosed.
		defer func() {
			_ = source.Close()
		}()
		loop.Source = source
		loop.RetryDelay = appCfg.Bridge.RetryDelay
		loop.Metrics = metrics
	}
	pipeline := &bridge.Pipeline{Fetcher: loops[0], Consumer: loops[1], Aggregator: loops[2], Results: local}

	var sources controller.SourceReader
	if archive != nil {
		sources = archive
	}
	judgeController := controller.NewJudgeController(statusRepo, submissionRepo, sources)
	httpServer := buildHTTPServer(appCfg.Server, registry, metrics, judgeController)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}

	ctx = context.WithValue(ctx, contextkey.BoxID, isolate.BoxID())
	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(shutdownCtx)

	g.Go(func() error {
		return pipeline.Run(gctx)
	})
	g.Go(func() error {
		logger.Info(ctx, "judge ops server started", zap.String("addr", appCfg.Server.Addr))
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(ctx, "shutdown signal received")
		shutdown, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdown); err != nil {
			logger.Error(ctx, "http server shutdown failed", zap.Error(err))
		}
		return nil
	})

	logger.Info(ctx, "judge worker started",
		zap.String("box_root", box.Root),
		zap.Strings("languages", languages.Languages()),
	)
	return g.Wait()
}

func buildHTTPServer(cfg ServerConfig, registry *broker.Registry, metrics *observer.Prometheus, judgeController *controller.JudgeController) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContext())
	router.Use(requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		if err := registry.Ping(c.Request.Context()); err != nil {
			response.Error(c, appErr.Wrapf(err, appErr.ServiceUnavailable, "broker unavailable"))
			return
		}
		response.Success(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api/v1/judge")
	api.GET("/submissions/:id", judgeController.GetSubmission)
	api.GET("/submissions/:id/source", judgeController.GetSource)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Debug(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
