package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"projectbeheer/backend/internal/app"
	"projectbeheer/backend/internal/config"
	"projectbeheer/backend/internal/logging"
	"projectbeheer/backend/internal/server"
	"projectbeheer/backend/internal/telemetry"
	telemetryotel "projectbeheer/backend/internal/telemetry/otel"
	"projectbeheer/backend/internal/telemetry/producer"
)

const healthInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		logger.Error("otel", "error", err)
		os.Exit(1)
	}
	providers.SetGlobal()

	emitters := []telemetry.EventEmitter{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AuditKafkaTopic)
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		logger.Info("audit feed enabled", "topic", cfg.AuditKafkaTopic)
	}

	tokens, err := app.Tokens(cfg)
	if err != nil {
		logger.Error("tokens", "error", err)
		os.Exit(1)
	}

	a, err := app.New(ctx, cfg, emitters...)
	if err != nil {
		logger.Error("storage", "error", err)
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Error("listen", "addr", cfg.GRPCAddr, "error", err)
		os.Exit(1)
	}
	defer lis.Close()

	deps := a.Deps()
	s := server.NewServer(tokens, logger)
	server.RegisterServices(s, deps)
	go deps.Health.Run(ctx, healthInterval)

	go func() {
		logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
		if err := s.Serve(lis); err != nil {
			logger.Error("serve", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gRPC server...")
	deps.Health.Shutdown()
	s.GracefulStop()

	// Let in-flight audit emits finish before closing their sinks.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if kafkaProducer != nil {
		if err := kafkaProducer.Close(); err != nil {
			logger.Warn("kafka producer close", "error", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("otel shutdown", "error", err)
	}
	a.Close()
	logger.Info("gRPC server stopped")
}
