package controller

import (
	"conflict-resolution-be/internal/dto"
	"conflict-resolution-be/internal/pkg/serverutils"
	"conflict-resolution-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IConflictController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Stats(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
	UpdateStatus(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	GetMessages(ctx *fiber.Ctx) error
	CompleteInterview(ctx *fiber.Ctx) error
	SendInvitation(ctx *fiber.Ctx) error
	AddCreatorResponses(ctx *fiber.Ctx) error
	AddAnalysis(ctx *fiber.Ctx) error
}

type conflictController struct {
	conflictService service.IConflictService
	jwtMiddleware   fiber.Handler
}

func NewConflictController(conflictService service.IConflictService, jwtMiddleware fiber.Handler) IConflictController {
	return &conflictController{
		conflictService: conflictService,
		jwtMiddleware:   jwtMiddleware,
	}
}

func (c *conflictController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/conflicts")
	h.Use(c.jwtMiddleware)
	h.Post("", c.Create)
	h.Get("", c.GetAll)
	h.Get("stats", c.Stats)
	h.Get(":id", c.Show)
	h.Put(":id", c.Update)
	h.Patch(":id/status", c.UpdateStatus)
	h.Delete(":id", c.Delete)
	h.Post(":id/messages", c.SendMessage)
	h.Get(":id/messages", c.GetMessages)
	h.Post(":id/complete-interview", c.CompleteInterview)
	h.Post(":id/invitations", c.SendInvitation)
	h.Post(":id/responses", c.AddCreatorResponses)
	h.Post(":id/analysis", c.AddAnalysis)
}

func conflictID(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid conflict id")
	}
	return id, nil
}

func parseBody(ctx *fiber.Ctx, req interface{}) error {
	if err := ctx.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return serverutils.ValidateRequest(req)
}

func (c *conflictController) Create(ctx *fiber.Ctx) error {
	var req dto.CreateConflictRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.conflictService.Create(ctx.UserContext(), serverutils.UserID(ctx), serverutils.UserEmail(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success create conflict", res))
}

func (c *conflictController) GetAll(ctx *fiber.Ctx) error {
	var query dto.ListConflictsQuery
	if err := ctx.QueryParser(&query); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid query parameters")
	}
	if err := serverutils.ValidateRequest(&query); err != nil {
		return err
	}

	res, err := c.conflictService.GetAll(ctx.UserContext(), serverutils.UserID(ctx), query)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get conflicts", res))
}

func (c *conflictController) Stats(ctx *fiber.Ctx) error {
	res, err := c.conflictService.Stats(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get conflict stats", res))
}

func (c *conflictController) Show(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}

	res, err := c.conflictService.Show(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show conflict", res))
}

func (c *conflictController) Update(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}
	var req dto.UpdateConflictRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.conflictService.Update(ctx.UserContext(), serverutils.UserID(ctx), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update conflict", res))
}

func (c *conflictController) UpdateStatus(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}
	var req dto.UpdateConflictStatusRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.conflictService.UpdateStatus(ctx.UserContext(), serverutils.UserID(ctx), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update conflict status", res))
}

func (c *conflictController) Delete(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}

	if err := c.conflictService.Delete(ctx.UserContext(), serverutils.UserID(ctx), id); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete conflict", nil))
}

// SendMessage creates the message and its pending stream record. The client
// then calls POST /start-stream with the returned stream id.
func (c *conflictController) SendMessage(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}
	var req dto.SendConflictMessageRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.conflictService.SendMessage(ctx.UserContext(), serverutils.UserID(ctx), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *conflictController) GetMessages(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}

	res, err := c.conflictService.GetMessages(ctx.UserContext(), serverutils.UserID(ctx), id)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get messages", res))
}

func (c *conflictController) CompleteInterview(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}
	var req dto.CompleteInterviewRequest
	if len(ctx.Body()) > 0 {
		if err := parseBody(ctx, &req); err != nil {
			return err
		}
	}

	res, err := c.conflictService.MarkInterviewCompleted(ctx.UserContext(), serverutils.UserID(ctx), id, req.CompletionMessage)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success complete interview", res))
}

func (c *conflictController) SendInvitation(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}
	var req dto.SendInvitationRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	if err := c.conflictService.SendInvitation(ctx.UserContext(), serverutils.UserID(ctx), serverutils.UserEmail(ctx), id, &req); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success send invitation", nil))
}

func (c *conflictController) AddCreatorResponses(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}
	var req dto.AddCreatorResponsesRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.conflictService.AddCreatorResponses(ctx.UserContext(), serverutils.UserID(ctx), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success add creator responses", res))
}

func (c *conflictController) AddAnalysis(ctx *fiber.Ctx) error {
	id, err := conflictID(ctx)
	if err != nil {
		return err
	}
	var req dto.AddAnalysisRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.conflictService.AddAnalysis(ctx.UserContext(), serverutils.UserID(ctx), id, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success add analysis", res))
}
