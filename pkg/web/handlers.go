package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/focuswatch/go-focuswatch/pkg/calibration"
	"github.com/focuswatch/go-focuswatch/pkg/tracking"
)

// statusResponse combines the pipeline snapshot with the persisted
// settings, so the overlay can render from a single request.
type statusResponse struct {
	tracking.Status
	Settings calibration.Settings `json:"settings"`
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(statusResponse{
		Status:   s.controller.Status(),
		Settings: s.controller.Store().Settings(),
	})
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	return c.JSON(s.controller.Store().Settings())
}

// handlePutSettings applies a settings update. The body is merged over the
// current settings, so clients may send only the fields they change.
func (s *Server) handlePutSettings(c *fiber.Ctx) error {
	store := s.controller.Store()

	next := store.Settings()
	if err := c.BodyParser(&next); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "malformed settings body",
		})
	}
	if err := store.SetSettings(next); err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, calibration.ErrInvalidSettings) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(store.Settings())
}

func (s *Server) handleGetCalibration(c *fiber.Ctx) error {
	return c.JSON(s.controller.Store().Calibration())
}

func (s *Server) handleStartHeadPose(c *fiber.Ctx) error {
	if err := s.controller.StartHeadPoseCalibration(); err != nil {
		return calibrationStartError(c, err)
	}
	return c.JSON(fiber.Map{
		"workflow": "head_pose",
		"samples":  calibration.HeadPoseSampleCount,
	})
}

func (s *Server) handleStartGaze(c *fiber.Ctx) error {
	if err := s.controller.StartGazeCalibration(); err != nil {
		return calibrationStartError(c, err)
	}
	return c.JSON(fiber.Map{
		"workflow":           "gaze",
		"samples_per_target": calibration.GazeSamplesPerTarget,
		"targets":            calibration.GazeTargets(),
	})
}

func calibrationStartError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, tracking.ErrCalibrationActive) {
		status = fiber.StatusConflict
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) handleCancelCalibration(c *fiber.Ctx) error {
	s.controller.CancelCalibration()
	return c.JSON(fiber.Map{"cancelled": true})
}

func (s *Server) handleResetCalibration(c *fiber.Ctx) error {
	if err := s.controller.Store().ResetCalibration(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.controller.Store().Calibration())
}
