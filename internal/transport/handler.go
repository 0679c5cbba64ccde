package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"go-capture-inspector/internal/config"
	apperrors "go-capture-inspector/internal/errors"
	"go-capture-inspector/internal/logger"
	"go-capture-inspector/internal/service"
	"go-capture-inspector/pkg/models"
)

const (
	version         = "1.0.0"
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

func NewHandler(svc service.CaptureService, metrics prometheus.Gatherer, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		cors.New(corsConfig(cfg.AllowedOrigins)),
		requestID(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/documents/validate", validateDocument(svc, cfg))
	v1.POST("/liveness", assessLiveness(svc, cfg))

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders: []string{"Content-Length", requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

func validateDocument(svc service.CaptureService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.DocumentValidationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		logger.WithRequest(c.GetString(requestIDKey)).WithFields(logrus.Fields{
			"document_type": req.DocumentType,
			"has_back":      req.Back != nil,
			"has_ocr":       req.OCR != nil,
			"ip":            c.ClientIP(),
		}).Info("Processing document validation request")

		res, err := svc.ValidateDocument(ctx, &req)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "document validation failed", err)
			return
		}

		logger.WithRequest(c.GetString(requestIDKey)).WithFields(logrus.Fields{
			"document_type":      req.DocumentType,
			"passed":             res.Passed,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Document validation completed")

		c.JSON(http.StatusOK, res)
	}
}

func assessLiveness(svc service.CaptureService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req models.LivenessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		res, err := svc.AssessLiveness(ctx, &req)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "liveness assessment failed", err)
			return
		}

		logger.WithRequest(c.GetString(requestIDKey)).WithFields(logrus.Fields{
			"is_live":            res.IsLive,
			"confidence":         res.Confidence,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Liveness assessment completed")

		c.JSON(http.StatusOK, res)
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions

// requestID reuses the caller's X-Request-ID or assigns a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(service.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondBindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(c, http.StatusRequestEntityTooLarge, "request body too large", err)
		return
	}
	respondError(c, http.StatusBadRequest, "invalid request format", err)
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithRequest(c.GetString(requestIDKey)).WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:     http.StatusText(code),
		Message:   fmt.Sprintf("%s: %v", message, err),
		RequestID: c.GetString(requestIDKey),
	})
}
