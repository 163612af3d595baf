// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package scheduler provides the milestone scheduling service for Planward.
//
// This package contains the main Service type that coordinates all
// components: HTTP routing, the dependency engine, the badger-backed
// document store, and observability infrastructure.
//
// # Usage
//
//	cfg := scheduler.Config{Port: 12310, DataDir: "/var/lib/planward"}
//	svc, err := scheduler.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/planward/planward/services/scheduler/engine"
	"github.com/planward/planward/services/scheduler/middleware"
	"github.com/planward/planward/services/scheduler/observability"
	"github.com/planward/planward/services/scheduler/routes"
	"github.com/planward/planward/services/scheduler/storage"
	"github.com/planward/planward/services/scheduler/storage/badgerstore"
)

// Version is the scheduler service version reported by /health.
const Version = "0.3.0"

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the scheduler service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and should
// only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine

	// Store returns the document store, primarily for seeding in tests
	// and the CLI.
	Store() storage.Store
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds scheduler configuration options.
//
// All fields are optional; New() applies defaults for zero values.
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// DataDir is the badger database directory.
	// Default: "./data/planward"
	DataDir string

	// InMemory runs the store without disk persistence. Used by tests
	// and the CLI's ephemeral mode.
	InMemory bool

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "planward-otel-collector:4317"
	OTelEndpoint string

	// DisableTracing skips OTLP tracer setup entirely. The gRPC client
	// connects lazily, so leaving tracing on without a collector is
	// harmless but noisy.
	DisableTracing bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	GinMode string

	// MutationRatePerSecond caps sustained mutations per project.
	// Default: 25
	MutationRatePerSecond float64

	// MutationBurst is the per-project mutation burst. Default: 50
	MutationBurst int
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data/planward"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "planward-otel-collector:4317"
	}
	if cfg.MutationRatePerSecond == 0 {
		cfg.MutationRatePerSecond = 25
	}
	if cfg.MutationBurst == 0 {
		cfg.MutationBurst = 50
	}
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	router        *gin.Engine
	store         storage.Store
	mutator       *engine.Mutator
	metrics       *observability.SchedulerMetrics
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a scheduler Service with the given configuration.
//
// # Description
//
// New initializes all components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing (unless disabled)
//  3. Initializes Prometheus metrics
//  4. Opens the badger document store
//  5. Wires the dependency engine over the store
//  6. Sets up HTTP routes
//
// # Outputs
//
//   - Service: Ready-to-run scheduler service
//   - error: Non-nil if initialization fails
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if !s.config.DisableTracing {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	s.metrics = observability.InitMetrics()
	slog.Info("Initialized Prometheus metrics for scheduling")

	if err := s.initStore(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	s.mutator = engine.NewMutator(s.store, engine.NewCascader(s.store))

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting scheduler server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Store returns the document store.
func (s *service) Store() storage.Store {
	return s.store
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("scheduler-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initStore opens the badger-backed document store.
func (s *service) initStore() error {
	var (
		store *badgerstore.Store
		err   error
	)
	if s.config.InMemory {
		store, err = badgerstore.NewInMemory()
	} else {
		store, err = badgerstore.New(badgerstore.DefaultConfig(s.config.DataDir))
	}
	if err != nil {
		return err
	}
	s.store = store

	slog.Info("Document store opened",
		"dataDir", s.config.DataDir, "inMemory", s.config.InMemory)
	return nil
}

// initRouter creates the Gin engine and registers all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(middleware.RequestID())
	if !s.config.DisableTracing {
		s.router.Use(otelgin.Middleware("scheduler-service"))
	}

	limiter := middleware.NewMutationLimiter(
		s.config.MutationRatePerSecond, s.config.MutationBurst)

	routes.SetupRoutes(s.router, s.store, s.mutator, s.metrics, limiter, Version)
}

// cleanup releases all resources held by the service.
//
// Called when Run() exits or on initialization failure.
func (s *service) cleanup() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("store close error", "error", err)
		}
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}
