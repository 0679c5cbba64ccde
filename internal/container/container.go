package container

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"go-capture-inspector/internal/analyzer"
	"go-capture-inspector/internal/config"
	"go-capture-inspector/internal/document"
	"go-capture-inspector/internal/liveness"
	"go-capture-inspector/internal/logger"
	"go-capture-inspector/internal/observer"
	"go-capture-inspector/internal/repository"
	"go-capture-inspector/internal/service"
	"go-capture-inspector/internal/storage"
	"go-capture-inspector/internal/transport"
	"go-capture-inspector/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config         *config.Config
	pool           *analyzer.WorkerPool
	publisher      *observer.EventPublisher
	captureService service.CaptureService
	handler        http.Handler
}

// NewContainer builds the dependency graph. Profile errors are returned as
// configuration errors and must stop the process.
func NewContainer(cfg *config.Config) (*Container, error) {
	profiles, err := validation.LoadProfiles(cfg.ProfilesPath)
	if err != nil {
		return nil, err
	}

	extractor := analyzer.NewExtractor()
	validator, err := document.NewValidator(profiles, extractor)
	if err != nil {
		return nil, err
	}
	engine := liveness.NewEngine(profiles.Liveness(), extractor)

	// Each base64 character carries six bits.
	maxImageBytes := cfg.MaxRequestBodySize * 3 / 4
	fetcher := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout, maxImageBytes)

	var blobs storage.BlobStorage
	if cfg.AzureEnabled() {
		blobs, err = storage.NewAzureStorage(cfg.AzureAccountName, cfg.AzureAccountKey, maxImageBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to configure blob storage: %w", err)
		}
	}
	images := repository.NewCaptureRepository(
		validation.NewSourceValidator(cfg.AllowedHosts, int(maxImageBytes)),
		fetcher,
		blobs,
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(observer.NewMetricsObserver(registry))

	pool := analyzer.NewWorkerPool(cfg.Workers)

	deps := service.Dependencies{
		Images:    images,
		Validator: validator,
		Liveness:  engine,
		Pool:      pool,
		Events:    publisher,
		Timeout:   cfg.AnalysisTimeout,
		MaxPixels: cfg.MaxImagePixels,
		OCR:       newOCRProvider(cfg),
	}
	captureService := service.NewCaptureService(deps)

	logger.WithFields(logrus.Fields{
		"workers":       pool.Workers(),
		"ocr":           deps.OCR != nil,
		"blob_storage":  blobs != nil,
		"profiles_path": cfg.ProfilesPath,
	}).Info("Dependencies initialised")

	return &Container{
		config:         cfg,
		pool:           pool,
		publisher:      publisher,
		captureService: captureService,
		handler:        transport.NewHandler(captureService, registry, cfg),
	}, nil
}

// Start launches the analysis workers.
func (c *Container) Start() {
	c.pool.Start()
}

// Close stops the workers once queued jobs finish and waits for pending
// events.
func (c *Container) Close() {
	c.pool.Close()
	c.pool.Wait()
	c.publisher.Flush()
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
