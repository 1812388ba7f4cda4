package controller

import (
	"conflict-resolution-be/internal/dto"
	"conflict-resolution-be/internal/pkg/serverutils"
	"conflict-resolution-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	SendMessage(ctx *fiber.Ctx) error
	ListMessages(ctx *fiber.Ctx) error
	ClearMessages(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService   service.IChatService
	jwtMiddleware fiber.Handler
}

func NewChatController(chatService service.IChatService, jwtMiddleware fiber.Handler) IChatController {
	return &chatController{
		chatService:   chatService,
		jwtMiddleware: jwtMiddleware,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/messages")
	h.Use(c.jwtMiddleware)
	h.Post("", c.SendMessage)
	h.Get("", c.ListMessages)
	h.Delete("", c.ClearMessages)
}

// SendMessage stores the prompt with a pending stream record; the reply is
// produced by POST /start-stream.
func (c *chatController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendChatMessageRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.chatService.SendMessage(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success send message", res))
}

func (c *chatController) ListMessages(ctx *fiber.Ctx) error {
	res, err := c.chatService.ListMessages(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get messages", res))
}

func (c *chatController) ClearMessages(ctx *fiber.Ctx) error {
	res, err := c.chatService.ClearMessages(ctx.UserContext(), serverutils.UserID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success clear messages", res))
}
