package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/liveshop/internal/domain"
	apperrors "github.com/pscheid92/liveshop/internal/platform/errors"
)

const (
	maxDeviceIDLength   = 128
	maxDeviceNameLength = 100
)

func (s *Server) registerAPIRoutes() {
	inputLimiter := newRateLimiter(s.config.InputRatePerSecond, s.config.InputBurst)

	api := s.echo.Group("/api")
	api.GET("/show", s.handleGetShow)
	api.GET("/overlay", s.handleGetOverlay)
	api.POST("/overlay/dismiss", s.handleDismiss)
	api.POST("/contest/join", s.handleJoinContest)
	api.GET("/chat", s.handleGetChat)
	api.POST("/chat", s.handleSubmitChat, inputLimiter)
	api.GET("/reactions", s.handleGetReactions)
	api.POST("/reactions", s.handleReact, inputLimiter)
	api.PUT("/casting", s.handleStartCasting)
	api.DELETE("/casting", s.handleStopCasting)
	api.PUT("/playback", s.handleSetPlayback)
	api.POST("/spotlight/retry", s.handleRetryLookup)
}

func writeJSON(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

func (s *Server) handleGetShow(c echo.Context) error {
	return writeJSON(c, http.StatusOK, s.show.Snapshot())
}

func (s *Server) handleGetOverlay(c echo.Context) error {
	return writeJSON(c, http.StatusOK, s.show.Overlay())
}

func (s *Server) handleDismiss(c echo.Context) error {
	if !s.show.Dismiss() {
		return apperrors.NotFoundError("no overlay is showing")
	}
	return writeJSON(c, http.StatusOK, s.show.Overlay())
}

func (s *Server) handleJoinContest(c echo.Context) error {
	view, err := s.show.JoinContest()
	switch {
	case errors.Is(err, domain.ErrNoContest):
		return apperrors.NotFoundError("no contest is showing")
	case errors.Is(err, domain.ErrContestAlreadyJoined):
		return apperrors.ConflictError("contest already joined", err)
	case err != nil:
		return apperrors.InternalError("failed to join contest", err)
	}
	return writeJSON(c, http.StatusOK, view)
}

type chatResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
	Viewers  int                  `json:"viewers"`
}

func (s *Server) handleGetChat(c echo.Context) error {
	messages, viewers := s.show.Chat()
	return writeJSON(c, http.StatusOK, chatResponse{Messages: messages, Viewers: viewers})
}

type submitChatRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSubmitChat(c echo.Context) error {
	var req submitChatRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	msg, ok := s.show.SubmitChat(req.Text)
	if !ok {
		return apperrors.ValidationError("message text is required")
	}
	return writeJSON(c, http.StatusCreated, msg)
}

func (s *Server) handleGetReactions(c echo.Context) error {
	return writeJSON(c, http.StatusOK, s.show.Reactions())
}

func (s *Server) handleReact(c echo.Context) error {
	token, ok := s.show.React()
	if !ok {
		return apperrors.ConflictError("too many reactions in flight", nil)
	}
	return writeJSON(c, http.StatusCreated, token)
}

type startCastingRequest struct {
	DeviceID   string `json:"deviceId"`
	DeviceName string `json:"deviceName"`
}

func (s *Server) handleStartCasting(c echo.Context) error {
	var req startCastingRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	device, err := validateDevice(req)
	if err != nil {
		return err
	}
	return writeJSON(c, http.StatusOK, s.show.StartCasting(device))
}

func validateDevice(req startCastingRequest) (domain.DeviceRef, error) {
	id := strings.TrimSpace(req.DeviceID)
	name := strings.TrimSpace(req.DeviceName)

	switch {
	case id == "":
		return domain.DeviceRef{}, apperrors.ValidationError("deviceId is required")
	case len(id) > maxDeviceIDLength:
		return domain.DeviceRef{}, apperrors.ValidationError(fmt.Sprintf("deviceId exceeds %d characters", maxDeviceIDLength))
	case len(name) > maxDeviceNameLength:
		return domain.DeviceRef{}, apperrors.ValidationError(fmt.Sprintf("deviceName exceeds %d characters", maxDeviceNameLength))
	}

	if name == "" {
		name = id
	}
	return domain.DeviceRef{ID: id, Name: name}, nil
}

func (s *Server) handleStopCasting(c echo.Context) error {
	return writeJSON(c, http.StatusOK, s.show.StopCasting())
}

type playbackRequest struct {
	Playing *bool `json:"playing"`
}

func (s *Server) handleSetPlayback(c echo.Context) error {
	var req playbackRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Playing == nil {
		return apperrors.ValidationError("playing is required")
	}
	return writeJSON(c, http.StatusOK, s.show.SetPlaying(*req.Playing))
}

func (s *Server) handleRetryLookup(c echo.Context) error {
	err := s.show.RetryLookup()
	switch {
	case errors.Is(err, domain.ErrNoSpotlight):
		return apperrors.NotFoundError("no product spotlight is showing")
	case errors.Is(err, domain.ErrLookupInProgress):
		return apperrors.ConflictError("product lookup already in progress", err)
	case err != nil:
		return apperrors.InternalError("failed to retry product lookup", err)
	}
	return c.NoContent(http.StatusAccepted)
}
