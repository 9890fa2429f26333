// Package web exposes the tracker over HTTP: a REST control surface for
// settings and calibration, and websocket streams for live results and
// events. The server is also a tracking.Sink, so the pipeline publishes
// straight into the stream hubs.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/focuswatch/go-focuswatch/internal/log"
	"github.com/focuswatch/go-focuswatch/pkg/calibration"
	"github.com/focuswatch/go-focuswatch/pkg/hub"
	"github.com/focuswatch/go-focuswatch/pkg/tracking"
)

// Controller is the slice of the pipeline the web layer drives.
type Controller interface {
	Status() tracking.Status
	StartHeadPoseCalibration() error
	StartGazeCalibration() error
	CancelCalibration()
	Store() *calibration.Store
}

// Server is the HTTP and websocket front end.
type Server struct {
	app        *fiber.App
	port       string
	controller Controller

	resultsHub *hub.Hub
	eventsHub  *hub.Hub
}

// NewServer creates the server for the given pipeline controller.
func NewServer(port string, controller Controller) *Server {
	s := &Server{
		port:       port,
		controller: controller,
		resultsHub: hub.New("results"),
		eventsHub:  hub.New("events"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "focuswatch",
		DisableStartupMessage: true,
	})

	// CORS for local overlay development.
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/settings", s.handleGetSettings)
	api.Put("/settings", s.handlePutSettings)
	api.Get("/calibration", s.handleGetCalibration)
	api.Post("/calibration/headpose", s.handleStartHeadPose)
	api.Post("/calibration/gaze", s.handleStartGaze)
	api.Post("/calibration/cancel", s.handleCancelCalibration)
	api.Post("/calibration/reset", s.handleResetCalibration)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/results", websocket.New(s.handleResultsWS))
	app.Get("/ws/events", websocket.New(s.handleEventsWS))

	s.app = app
	return s
}

// Start runs the stream hubs and listens. Blocks until shutdown.
func (s *Server) Start() error {
	log.Info("web server listening", "port", s.port)

	go s.resultsHub.Run()
	go s.eventsHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("web server failed", "error", err)
		}
	}()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// PublishResult implements tracking.Sink.
func (s *Server) PublishResult(res tracking.Result) {
	if err := s.resultsHub.BroadcastJSON(res); err != nil {
		log.Warn("encoding result failed", "error", err)
	}
}

// PublishEvent implements tracking.Sink.
func (s *Server) PublishEvent(ev tracking.Event) {
	if err := s.eventsHub.BroadcastJSON(ev); err != nil {
		log.Warn("encoding event failed", "error", err)
	}
}

func (s *Server) handleResultsWS(c *websocket.Conn) {
	hub.NewClient(s.resultsHub, c).Run()
}

func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.eventsHub, c).Run()
}
