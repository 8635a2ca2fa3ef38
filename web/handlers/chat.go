package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"kydx-console/chat"
	"kydx-console/session"
	"kydx-console/utils"
	"kydx-console/web/format"
	"kydx-console/web/middleware"
	"kydx-console/web/services"
	"kydx-console/web/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatHandler struct {
	sessions *services.SessionService
	logger   *zap.Logger
}

func NewChatHandler(sessions *services.SessionService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
		logger:   logger,
	}
}

func (h *ChatHandler) controller(c *gin.Context) (*session.Controller, uuid.UUID) {
	sessionID := c.MustGet(middleware.SessionIDKey).(uuid.UUID)
	return h.sessions.Get(c.Request.Context(), sessionID), sessionID
}

// viewportWidth reads the optional width query parameter; 0 when absent.
func viewportWidth(c *gin.Context) int {
	w, err := strconv.Atoi(c.Query("width"))
	if err != nil || w < 0 {
		return 0
	}
	return w
}

func (h *ChatHandler) Index(c *gin.Context) {
	ctrl, _ := h.controller(c)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := format.Page(ctrl.Snapshot(), viewportWidth(c)).Render(c.Request.Context(), c.Writer); err != nil {
		h.logger.Error("Failed to render chat page", zap.Error(err))
	}
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	ctrl, _ := h.controller(c)
	c.JSON(http.StatusOK, sessionResponse(ctrl.Snapshot(), viewportWidth(c)))
}

func (h *ChatHandler) ResetSession(c *gin.Context) {
	sessionID := c.MustGet(middleware.SessionIDKey).(uuid.UUID)
	ctrl := h.sessions.Reset(c.Request.Context(), sessionID)
	h.logger.Info("Session reset", zap.String("session_id", sessionID.String()))
	c.JSON(http.StatusOK, sessionResponse(ctrl.Snapshot(), viewportWidth(c)))
}

// DataLoaded tells the session that new data was loaded, so the next My Data
// fetches a fresh overview.
func (h *ChatHandler) DataLoaded(c *gin.Context) {
	ctrl, sessionID := h.controller(c)
	ctrl.InvalidateData()
	h.logger.Info("Session data invalidated", zap.String("session_id", sessionID.String()))
	c.JSON(http.StatusOK, sessionResponse(ctrl.Snapshot(), viewportWidth(c)))
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req types.MessageRequest
	if err := c.ShouldBind(&req); err != nil {
		respondWithClientError(c, http.StatusBadRequest, "Invalid request body.")
		return
	}

	ctrl, sessionID := h.controller(c)
	res, err := ctrl.Submit(c.Request.Context(), req.Text)
	if err != nil {
		respondWithSessionError(c, err, h.logger, zap.String("session_id", sessionID.String()))
		return
	}
	c.JSON(http.StatusOK, actionResponse(res, ctrl.Snapshot(), viewportWidth(c)))
}

func (h *ChatHandler) TriggerAction(c *gin.Context) {
	action, ok := session.ParseAffordance(strings.TrimSpace(c.Param("name")))
	if !ok {
		respondWithClientError(c, http.StatusNotFound, "Unknown action.")
		return
	}

	ctrl, sessionID := h.controller(c)
	res, err := ctrl.Trigger(c.Request.Context(), action)
	if err != nil {
		respondWithSessionError(c, err, h.logger,
			zap.String("session_id", sessionID.String()),
			zap.String("action", string(action)))
		return
	}
	c.JSON(http.StatusOK, actionResponse(res, ctrl.Snapshot(), viewportWidth(c)))
}

func (h *ChatHandler) MessagesHTML(c *gin.Context) {
	ctrl, sessionID := h.controller(c)
	html, err := format.RenderLog(c.Request.Context(), ctrl.Snapshot().Log)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, err, "Could not render messages.", h.logger,
			zap.String("session_id", sessionID.String()))
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func sessionResponse(snap session.Snapshot, width int) types.SessionResponse {
	resp := types.SessionResponse{
		ID:          snap.ID,
		Messages:    snap.Log,
		Affordances: []types.AffordanceView{},
		Busy:        snap.Busy,
	}
	if resp.Messages == nil {
		resp.Messages = []chat.Message{}
	}
	for _, a := range snap.Affordances.List() {
		resp.Affordances = append(resp.Affordances, types.AffordanceView{
			Name:  string(a),
			Label: format.AffordanceLabel(a, width),
		})
	}
	if snap.Wizarding() {
		prompt, _ := snap.Wizard.Current()
		resp.Wizard = &types.WizardView{
			Kind:      string(snap.Wizard.Kind),
			Prompt:    prompt,
			Remaining: snap.Wizard.Remaining(),
		}
	}
	return resp
}

func actionResponse(res session.Result, snap session.Snapshot, width int) types.ActionResponse {
	msgs := res.Messages
	if msgs == nil {
		msgs = []chat.Message{}
	}
	view := res.View
	if view != nil && !utils.SafeMediaURL(view.URL, utils.ChartsPrefix) {
		view = nil
	}
	return types.ActionResponse{
		Messages: msgs,
		View:     view,
		Session:  sessionResponse(snap, width),
	}
}
