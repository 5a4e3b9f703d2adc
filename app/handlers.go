package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/yshengliao/casedesk/auth"
	"github.com/yshengliao/casedesk/hub"
	"github.com/yshengliao/casedesk/observability"
	"github.com/yshengliao/casedesk/response"
)

type handlers struct {
	app *App
}

type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

type loginResponse struct {
	Token       string   `json:"token"`
	ExpiresIn   int64    `json:"expires_in"`
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type meResponse struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

func (h *handlers) health(c echo.Context) error {
	report := h.app.health.Check(c.Request().Context())
	code := http.StatusOK
	if report.Status == observability.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, report)
}

func (h *handlers) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, describeValidation(err))
	}

	user, err := h.app.directory.Authenticate(req.Username, req.Password)
	if err != nil {
		h.app.logger.Info("Login rejected", zap.String("username", req.Username))
		return response.Unauthorized(c, auth.ErrInvalidCredentials.Error())
	}

	token, err := h.app.tokens.GenerateAccessToken(user)
	if err != nil {
		h.app.logger.Error("Failed to sign token", zap.Error(err))
		return response.InternalServerError(c, "failed to issue token")
	}

	return response.Success(c, http.StatusOK, loginResponse{
		Token:       token,
		ExpiresIn:   int64(h.app.config.JWT.AccessTokenTTL.Seconds()),
		UserID:      user.ID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions,
	})
}

func (h *handlers) me(c echo.Context) error {
	claims := auth.GetClaims(c)
	if claims == nil {
		return response.Unauthorized(c, auth.ErrInvalidToken.Error())
	}
	return response.Success(c, http.StatusOK, meResponse{
		UserID:      claims.UserID,
		Username:    claims.Username,
		Email:       claims.Email,
		Role:        claims.Role,
		Permissions: claims.Permissions,
	})
}

func (h *handlers) websocket(c echo.Context) error {
	conn, err := h.app.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		h.app.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return nil
	}

	client := hub.NewClient(h.app.hub, conn, h.app.SessionOptions(), h.app.logger.Named("session"))
	if !h.app.hub.RegisterClient(client) {
		conn.Close()
		return nil
	}

	go client.WritePump()
	go client.ReadPump()
	return nil
}

func (h *handlers) shell(c echo.Context) error {
	return renderShell(c, h.app.config.Navigation.MountID)
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
