package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"leadpilot-be/internal/dto"
	"leadpilot-be/internal/pkg/serverutils"
	"leadpilot-be/internal/service"
)

type IOpsController interface {
	RegisterRoutes(r fiber.Router)
	BufferStatus(ctx *fiber.Ctx) error
	Pause(ctx *fiber.Ctx) error
	Resume(ctx *fiber.Ctx) error
	ListFollowUps(ctx *fiber.Ctx) error
}

type opsController struct {
	orchestratorService service.IOrchestratorService
	followUpService     service.IFollowUpRunnerService
}

func NewOpsController(
	orchestratorService service.IOrchestratorService,
	followUpService service.IFollowUpRunnerService,
) IOpsController {
	return &opsController{
		orchestratorService: orchestratorService,
		followUpService:     followUpService,
	}
}

func (c *opsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/ops/v1")
	h.Use(serverutils.SharedSecretMiddleware)
	h.Get("conversations/:key/buffer", c.BufferStatus)
	h.Post("conversations/:key/pause", c.Pause)
	h.Delete("conversations/:key/pause", c.Resume)
	h.Get("followups", c.ListFollowUps)
}

func (c *opsController) BufferStatus(ctx *fiber.Ctx) error {
	key := ctx.Params("key")
	res := c.orchestratorService.BufferStatus(key)
	return ctx.JSON(serverutils.SuccessResponse("Buffer status", res))
}

func (c *opsController) Pause(ctx *fiber.Ctx) error {
	key := ctx.Params("key")

	var req dto.PauseRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
		if err := serverutils.ValidateRequest(req); err != nil {
			return err
		}
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	if err := c.orchestratorService.Pause(ctx.Context(), key, duration); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Conversation paused", dto.PauseResponse{
		ConversationKey: key,
		Paused:          true,
	}))
}

func (c *opsController) Resume(ctx *fiber.Ctx) error {
	key := ctx.Params("key")
	if err := c.orchestratorService.Resume(ctx.Context(), key); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation resumed", dto.PauseResponse{
		ConversationKey: key,
		Paused:          false,
	}))
}

func (c *opsController) ListFollowUps(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.followUpService.ListPending(ctx.Context(), limit, offset)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Pending follow-ups", res))
}
