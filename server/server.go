// Package server exposes the conversation engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"taskpilot/core"
)

// TurnProcessor runs one conversational turn. Implemented by engine.Engine.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, userID, threadID, text string) (string, error)
}

// UserInput is the request body for a chat turn.
type UserInput struct {
	Message  string `json:"message"`
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
}

// ResponseModel is the reply for a chat turn.
type ResponseModel struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
	UserID   string `json:"user_id"`
	Status   string `json:"status"`
}

// Server wires the HTTP routes onto a turn processor.
type Server struct {
	echo     *echo.Echo
	engine   TurnProcessor
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

// New builds the HTTP server around the given turn processor.
func New(engine TurnProcessor, log *logrus.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"*"},
		AllowCredentials: false,
	}))

	s := &Server{
		echo:   e,
		engine: engine,
		log:    log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	e.POST("/chat", s.handleChat)
	e.GET("/chat_stream", s.handleChatStream)
	e.GET("/health_check", s.handleHealthCheck)

	return s
}

// Start blocks serving HTTP on the given address.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying http.Handler, used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleChat(c echo.Context) error {
	var req UserInput
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   req.UserID,
		"thread_id": req.ThreadID,
	}).Info("chat turn started")

	text, err := s.engine.ProcessTurn(c.Request().Context(), req.UserID, req.ThreadID, req.Message)
	if err != nil {
		return s.turnError(c, req, err)
	}

	return c.JSON(http.StatusOK, ResponseModel{
		Response: text,
		ThreadID: req.ThreadID,
		UserID:   req.UserID,
		Status:   "success",
	})
}

// handleChatStream serves an interactive websocket session: one UserInput
// frame in, one ResponseModel frame out, repeated until the client hangs up.
func (s *Server) handleChatStream(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx := c.Request().Context()
	for {
		var req UserInput
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.WithError(err).Warn("websocket read failed")
			}
			return nil
		}

		resp := ResponseModel{ThreadID: req.ThreadID, UserID: req.UserID, Status: "success"}
		text, err := s.engine.ProcessTurn(ctx, req.UserID, req.ThreadID, req.Message)
		if err != nil {
			s.log.WithError(err).Error("chat turn failed")
			resp.Status = "error"
			resp.Response = err.Error()
		} else {
			resp.Response = text
		}

		if err := conn.WriteJSON(resp); err != nil {
			s.log.WithError(err).Warn("websocket write failed")
			return nil
		}
	}
}

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) turnError(c echo.Context, req UserInput, err error) error {
	s.log.WithError(err).WithFields(logrus.Fields{
		"user_id":   req.UserID,
		"thread_id": req.ThreadID,
	}).Error("chat turn failed")

	if errors.Is(err, core.ErrMissingUserContext) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
