package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nbserve/config"
	"nbserve/db"
	qhttp "nbserve/http"
	"nbserve/logging"
	"nbserve/ml"
	"nbserve/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. 加载制品，任一失败即退出
	artifacts, err := ml.LoadArtifacts(cfg.Model.Dir, cfg.Model.ClassifierFile, cfg.Model.VectorizerFile)
	if err != nil {
		logger.Fatal("failed to load model artifacts", zap.String("dir", cfg.Model.Dir), zap.Error(err))
	}
	predictor, err := ml.NewPredictor(artifacts, cfg.Model.CacheSize)
	if err != nil {
		logger.Fatal("failed to build predictor", zap.Error(err))
	}
	info := predictor.Info()
	logger.Info("model artifacts loaded",
		zap.String("classifier", artifacts.ClassifierPath),
		zap.String("vectorizer", artifacts.VectorizerPath),
		zap.Int("classes", len(info.Classes)),
		zap.Int("vocabulary_size", info.VocabularySize))
	if info.NumFeatures != info.VocabularySize {
		logger.Warn("vectorizer and classifier dimensions differ",
			zap.Int("num_features", info.NumFeatures),
			zap.Int("vocabulary_size", info.VocabularySize))
	}

	if cfg.Model.Watch {
		watcher, err := ml.WatchArtifacts([]string{artifacts.ClassifierPath, artifacts.VectorizerPath}, logger, nil)
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
		}
	}

	// 3. 可选的预测审计日志
	opts := qhttp.HandlerOptions{
		Metrics:           monitoring.NewMetricsCollector(),
		Logger:            logger,
		StrictStatusCodes: cfg.Server.StrictStatusCodes,
		MaxBodyBytes:      cfg.Server.MaxBodyBytes,
	}
	if cfg.Store.Path != "" {
		store, err := db.Open(cfg.Store.Path, cfg.Store.QueueSize, logger)
		if err != nil {
			logger.Fatal("failed to open prediction store", zap.String("path", cfg.Store.Path), zap.Error(err))
		}
		defer store.Close()
		opts.Recorder = store
		logger.Info("prediction store initialized", zap.String("path", cfg.Store.Path))
	}

	// 4. 启动HTTP服务器
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:         cfg.Server.Port,
		Timeout:      cfg.Server.Timeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}, qhttp.NewInferenceHandler(predictor, opts), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 5. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}
