package api

import (
	"errors"
	"time"

	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Certificate template images arrive base64 encoded in JSON bodies
const bodyLimit = 12 * 1024 * 1024

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *zap.Logger
}

func NewAPIServer(listenAddress string, log *zap.Logger) *APIServer {
	return &APIServer{
		app: fiber.New(fiber.Config{
			AppName:      "course-portal",
			BodyLimit:    bodyLimit,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
			ErrorHandler: ErrorHandler,
		}),
		listenAddress: listenAddress,
		log:           log,
	}
}

// ErrorHandler renders errors that escaped a handler as the usual JSON body
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return response.Error(c, fe.Code, fe.Message)
	}
	logger.FromContext(c.UserContext()).Error("unhandled error", zap.Error(err))
	return response.InternalServerError(c, "Internal server error")
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

func (s *APIServer) Run() error {
	s.log.Info("starting API server", zap.String("address", s.listenAddress))
	return s.app.Listen(s.listenAddress)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *APIServer) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}
