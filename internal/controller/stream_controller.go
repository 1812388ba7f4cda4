package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"conflict-resolution-be/internal/dto"
	"conflict-resolution-be/internal/pkg/logger"
	"conflict-resolution-be/internal/pkg/serverutils"
	"conflict-resolution-be/internal/service"
	"conflict-resolution-be/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.opentelemetry.io/otel/trace"
)

type IStreamController interface {
	RegisterRoutes(r fiber.Router)
	StartStream(ctx *fiber.Ctx) error
	GetStreamBody(ctx *fiber.Ctx) error
	StreamEvents(ctx *fiber.Ctx) error
}

type streamController struct {
	streamService service.IStreamService
	logger        logger.ILogger
}

func NewStreamController(streamService service.IStreamService, logger logger.ILogger) IStreamController {
	return &streamController{
		streamService: streamService,
		logger:        logger,
	}
}

func (c *streamController) RegisterRoutes(r fiber.Router) {
	// Stream routes are public and readable from any origin.
	anyOrigin := cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	})
	r.Use("/start-stream", anyOrigin)
	r.Use("/streams", anyOrigin)

	r.Post("/start-stream", c.StartStream)
	r.Get("/streams/:id", c.GetStreamBody)
	r.Get("/streams/:id/events", c.StreamEvents)
}

// detached keeps the request span but not the request lifetime; the body
// stream writer runs after the handler has returned.
func detached(ctx *fiber.Ctx) (context.Context, context.CancelFunc) {
	base := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx.UserContext()))
	return context.WithCancel(base)
}

func (c *streamController) StartStream(ctx *fiber.Ctx) error {
	var req dto.StartStreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	active, err := c.streamService.Start(ctx.UserContext(), req.StreamId)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	ctx.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	ctx.Set(fiber.HeaderVary, "Origin")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")

	runCtx, cancel := detached(ctx)
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		// A failed write means the client is gone; cancelling finalizes the record as error.
		_, _ = active.Run(runCtx, func(fragment string) {
			if _, err := w.WriteString(fragment); err != nil {
				cancel()
				return
			}
			if err := w.Flush(); err != nil {
				cancel()
			}
		})
	})
	return nil
}

func (c *streamController) GetStreamBody(ctx *fiber.Ctx) error {
	res, err := c.streamService.Read(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get stream body", res))
}

// StreamEvents serves a subscription as server-sent events: one snapshot event
// per update and an end event after the terminal one.
func (c *streamController) StreamEvents(ctx *fiber.Ctx) error {
	id := ctx.Params("id")
	driving := ctx.QueryBool("driving", false)

	subCtx, cancel := detached(ctx)
	sub, err := c.streamService.Subscribe(subCtx, id, driving)
	if err != nil {
		cancel()
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		metrics.ActiveSubscribers.WithLabelValues("sse").Inc()
		defer metrics.ActiveSubscribers.WithLabelValues("sse").Dec()

		for snap := range sub.Updates {
			data, err := json.Marshal(dto.StreamMessage{
				Type: "stream",
				Data: dto.StreamBodyResponse{
					Id:         snap.ID,
					Text:       snap.Text,
					Status:     snap.Status.String(),
					Generation: snap.Generation,
				},
				Driving:  sub.Driving,
				Finished: sub.ActionFinished(snap),
			})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data)
			if err := w.Flush(); err != nil {
				c.logger.Debug("STREAM", "SSE client gone", map[string]interface{}{"stream_id": id})
				return
			}
		}
		fmt.Fprint(w, "event: end\ndata: {}\n\n")
		w.Flush()
	})
	return nil
}
