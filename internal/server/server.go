// Package server exposes run status, run history, the subscriber count and metrics over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	batchModel "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const defaultRunsLimit = 20

var validate = validator.New()

// SubscriberCounter reports the size of the subscriber registry.
type SubscriberCounter interface {
	Count(ctx context.Context) (int, error)
}

// Server is the status HTTP server.
type Server struct {
	app     *fiber.App
	address string
	runs    repository.RunRepository
	subs    SubscriberCounter
}

// accessLog sends Fiber's access log lines to the application logger.
type accessLog struct{}

func (accessLog) Write(p []byte) (int, error) {
	logger.Debugf("HTTP %s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// New builds the Fiber app and registers every route. metricsHandler may be nil, in which
// case /metrics answers 404.
func New(cfg *config.Config, runs repository.RunRepository, subs SubscriberCounter, metricsHandler http.Handler) *Server {
	s := &Server{
		address: cfg.ETL.Server.Address,
		runs:    runs,
		subs:    subs,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               cfg.ETL.Observability.ServiceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})
	s.app.Use(recover.New())
	s.app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${status} ${method} ${path} ${latency}\n",
		Output: accessLog{},
	}))

	s.app.Get("/health", s.health)

	v1 := s.app.Group("/api/v1")
	v1.Get("/status", s.status)
	v1.Get("/runs", s.listRuns)
	v1.Get("/subscribers/count", s.subscriberCount)

	if metricsHandler != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(metricsHandler))
	}
	return s
}

// App returns the underlying Fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens in the background. A listen failure is logged.
func (s *Server) Start() {
	go func() {
		logger.Infof("Status server listening on %s", s.address)
		if err := s.app.Listen(s.address); err != nil {
			logger.Errorf("Status server stopped: %v", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// health is 503 when the latest run finished without a single completed city.
func (s *Server) health(c *fiber.Ctx) error {
	latest, err := s.runs.FindLatestRunExecution(c.UserContext())
	if errors.Is(err, repository.ErrRunExecutionNotFound) {
		return c.JSON(fiber.Map{"status": "ok", "last_run": nil})
	}
	if err != nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, exception.ExtractErrorMessage(err))
	}

	if latest.Status == batchModel.BatchStatusFailed && latest.CompletedCities == 0 && latest.TotalCities > 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "failing", "last_run": latest})
	}
	return c.JSON(fiber.Map{"status": "ok", "last_run": latest})
}

func (s *Server) status(c *fiber.Ctx) error {
	latest, err := s.runs.FindLatestRunExecution(c.UserContext())
	if errors.Is(err, repository.ErrRunExecutionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "no run recorded yet")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load run history")
	}
	return c.JSON(fiber.Map{
		"run":     latest,
		"summary": strconv.Itoa(latest.CompletedCities) + "/" + strconv.Itoa(latest.TotalCities),
	})
}

// runsQuery holds query parameters for the history endpoint.
type runsQuery struct {
	Limit int `validate:"gte=1,lte=500"`
}

func (s *Server) listRuns(c *fiber.Ctx) error {
	q := runsQuery{Limit: defaultRunsLimit}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be an integer")
		}
		q.Limit = n
	}
	if err := validate.Struct(q); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	runs, err := s.runs.FindRecentRunExecutions(c.UserContext(), q.Limit)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to load run history")
	}
	return c.JSON(fiber.Map{"runs": runs, "count": len(runs)})
}

func (s *Server) subscriberCount(c *fiber.Ctx) error {
	n, err := s.subs.Count(c.UserContext())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to count subscribers")
	}
	return c.JSON(fiber.Map{"subscribers": n})
}
