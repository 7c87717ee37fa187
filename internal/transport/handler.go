package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/comicvault-grader/internal/errors"
	"github.com/anime-shed/comicvault-grader/internal/logger"
	"github.com/anime-shed/comicvault-grader/internal/service"
	"github.com/anime-shed/comicvault-grader/pkg/models"
)

const (
	serviceName    = "ComicVault Grader"
	serviceVersion = "1.0.0"
)

// Options configures the HTTP surface
type Options struct {
	MaxRequestBodySize int64
	RequestTimeout     time.Duration
	CORSOrigins        []string
	// Gatherer backs /metrics; nil disables the route
	Gatherer prometheus.Gatherer
}

func NewHandler(svc service.GradingService, opts Options) http.Handler {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestLogger(),
		cors(opts.CORSOrigins),
		requestSizeLimiter(opts.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/", serviceInfo)
	r.GET("/health", healthCheck)
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.POST("/comics/grade", gradeUpload(svc, opts.RequestTimeout))
	api.POST("/comics/grade-url", gradeURL(svc, opts.RequestTimeout))
	api.GET("/users/:user_id/comics", listGradings(svc))
	api.GET("/users/:user_id/comics/:comic_id", getGrading(svc))
	api.GET("/users/:user_id/comics/:comic_id/report", getReport(svc))

	return r
}

func gradeUpload(svc service.GradingService, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := withTimeout(c.Request.Context(), timeout)
		defer cancel()

		userID := strings.TrimSpace(c.PostForm("user_id"))
		if userID == "" {
			respondError(c, http.StatusBadRequest, "invalid request format", errors.New("user_id is required"))
			return
		}

		front, err := readUpload(c, "front")
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}
		back, err := readUpload(c, "back")
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"user_id":    userID,
			"front_size": len(front.Data),
			"back_size":  len(back.Data),
		}).Debug("Grading uploaded images")

		resp, err := svc.GradeUpload(ctx, service.UploadRequest{UserID: userID, Front: front, Back: back})
		if err != nil {
			respondError(c, determineStatusCode(err), "grading failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func gradeURL(svc service.GradingService, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := withTimeout(c.Request.Context(), timeout)
		defer cancel()

		var req models.GradeURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		resp, err := svc.GradeURLs(ctx, req)
		if err != nil {
			respondError(c, determineStatusCode(err), "grading failed", err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func listGradings(svc service.GradingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				respondError(c, http.StatusBadRequest, "invalid limit", fmt.Errorf("limit must be a positive integer, got %q", raw))
				return
			}
			limit = n
		}

		userID := c.Param("user_id")
		list, err := svc.ListResults(c.Request.Context(), userID, limit)
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to list gradings", err)
			return
		}
		c.JSON(http.StatusOK, models.GradingListResponse{UserID: userID, Gradings: list})
	}
}

func getGrading(svc service.GradingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := svc.GetResult(c.Request.Context(), c.Param("user_id"), c.Param("comic_id"))
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to load grading", err)
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func getReport(svc service.GradingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		pdf, err := svc.GetReport(c.Request.Context(), c.Param("user_id"), c.Param("comic_id"))
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to load report", err)
			return
		}
		c.Header("Content-Disposition", `inline; filename="grading_report.pdf"`)
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}

func serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": []string{
			"POST /api/comics/grade",
			"POST /api/comics/grade-url",
			"GET /api/users/:user_id/comics",
			"GET /api/users/:user_id/comics/:comic_id",
			"GET /api/users/:user_id/comics/:comic_id/report",
		},
	})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": serviceVersion,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func readUpload(c *gin.Context, field string) (service.Upload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return service.Upload{}, fmt.Errorf("%s image is required: %w", field, err)
	}
	data, err := readFormFile(header)
	if err != nil {
		return service.Upload{}, fmt.Errorf("failed to read %s image: %w", field, err)
	}
	return service.Upload{Filename: header.Filename, Data: data}, nil
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Middleware and helper functions
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status_code": c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request completed")
			return
		}
		entry.Info("Request completed")
	}
}

func cors(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && lo.Contains(origins, origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
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
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	var maxBytesErr *http.MaxBytesError
	if code == http.StatusBadRequest && errors.As(err, &maxBytesErr) {
		code = http.StatusRequestEntityTooLarge
	}

	entry := logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	})
	if code >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Warn("Request failed")
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
