package controller

import (
	"io"

	"ai-data-analyst-be/internal/dto"
	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/internal/pkg/serverutils"
	"ai-data-analyst-be/internal/service"
	internalWS "ai-data-analyst-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IAnalysisController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	CloseSession(ctx *fiber.Ctx) error
	Upload(ctx *fiber.Ctx) error
	Ask(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	GetTranscript(ctx *fiber.Ctx) error
	GetSchema(ctx *fiber.Ctx) error
	GetState(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
}

type analysisController struct {
	service service.IAnalysisService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewAnalysisController(service service.IAnalysisService, hub *internalWS.Hub, log logger.ILogger) IAnalysisController {
	return &analysisController{service: service, hub: hub, logger: log}
}

func (c *analysisController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/analysis/v1/sessions")
	h.Post("", c.CreateSession)
	h.Delete(":id", c.CloseSession)
	h.Post(":id/upload", c.Upload)
	h.Post(":id/ask", c.Ask)
	h.Post(":id/reset", c.Reset)
	h.Get(":id/transcript", c.GetTranscript)
	h.Get(":id/schema", c.GetSchema)
	h.Get(":id/state", c.GetState)
	h.Get(":id/ws", c.Stream)
}

func (c *analysisController) CreateSession(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *analysisController) CloseSession(ctx *fiber.Ctx) error {
	if err := c.service.CloseSession(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session closed", nil))
}

func (c *analysisController) Upload(ctx *fiber.Ctx) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart field 'file' is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	res, err := c.service.Upload(ctx.UserContext(), ctx.Params("id"), fileHeader.Filename, data)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Dataset loaded", res))
}

func (c *analysisController) Ask(ctx *fiber.Ctx) error {
	var req dto.AskRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Ask(ctx.UserContext(), ctx.Params("id"), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Question processed", res))
}

func (c *analysisController) Reset(ctx *fiber.Ctx) error {
	if err := c.service.Reset(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session reset", nil))
}

func (c *analysisController) GetTranscript(ctx *fiber.Ctx) error {
	res, err := c.service.GetTranscript(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Transcript", res))
}

func (c *analysisController) GetSchema(ctx *fiber.Ctx) error {
	res, err := c.service.GetSchema(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Schema", res))
}

func (c *analysisController) GetState(ctx *fiber.Ctx) error {
	res, err := c.service.GetState(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session state", res))
}

// Stream upgrades to a websocket that receives every transcript change of the session.
func (c *analysisController) Stream(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")
	if !c.service.Exists(sessionID) {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}

	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	return websocket.New(func(conn *websocket.Conn) {
		c.logger.Info("AnalysisController", "Transcript stream opened", map[string]interface{}{"session_id": sessionID})
		internalWS.ServeWs(c.hub, conn, sessionID)
		c.logger.Info("AnalysisController", "Transcript stream closed", map[string]interface{}{"session_id": sessionID})
	})(ctx)
}
