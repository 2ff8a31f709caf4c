package controller

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"leadpilot-be/internal/dto"
	"leadpilot-be/internal/pkg/serverutils"
	"leadpilot-be/internal/service"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	InboundMessage(ctx *fiber.Ctx) error
	CrmEvent(ctx *fiber.Ctx) error
}

type webhookController struct {
	publisherService    service.IPublisherService
	orchestratorService service.IOrchestratorService
}

func NewWebhookController(
	publisherService service.IPublisherService,
	orchestratorService service.IOrchestratorService,
) IWebhookController {
	return &webhookController{
		publisherService:    publisherService,
		orchestratorService: orchestratorService,
	}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/webhook/v1")
	h.Use(serverutils.SharedSecretMiddleware)
	h.Post("message", c.InboundMessage)
	h.Post("crm", c.CrmEvent)
}

// InboundMessage accepts one message fragment and hands it to the bus. The
// webhook responds immediately; consolidation and reply happen asynchronously.
func (c *webhookController) InboundMessage(ctx *fiber.Ctx) error {
	var req dto.InboundMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	payload := dto.InboundFragmentMessage{
		ConversationKey: req.Phone,
		Kind:            req.Kind,
		Text:            req.Text,
		MediaType:       req.MediaType,
		MediaRef:        req.MediaRef,
		LeadName:        req.LeadName,
		ReceivedAt:      time.Now(),
	}
	msgJson, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := c.publisherService.Publish(ctx.Context(), msgJson); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Message accepted", dto.WebhookAcceptedResponse{
		ConversationKey: req.Phone,
		Accepted:        true,
	}))
}

func (c *webhookController) CrmEvent(ctx *fiber.Ctx) error {
	var req dto.CrmEventRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.orchestratorService.HandleCrmEvent(ctx.Context(), &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Event processed", dto.WebhookAcceptedResponse{
		ConversationKey: req.Phone,
		Accepted:        true,
	}))
}
