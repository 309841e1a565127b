package api

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/docavailable/chat-engine/internal/auth"
)

func NewServer(jv *auth.JWTValidator, h *Handlers) *fiber.App {
	app := fiber.New()
	app.Use(fiberlogger.New())

	app.Get("/healthz", func(c *fiber.Ctx) error { return c.SendString("ok") })

	api := app.Group("/v1")
	api.Use(bearerAuth(jv))

	api.Post("/conversations/:conv_id/messages", h.storeMessage)
	api.Get("/conversations/:conv_id/messages", h.listMessages)
	api.Get("/conversations/:conv_id/messages/:msg_id", h.getMessage)
	api.Delete("/conversations/:conv_id/messages", h.clearConversation)
	api.Post("/conversations/:conv_id/replies", h.storeReply)
	api.Post("/conversations/:conv_id/sync", h.syncMessages)
	api.Get("/conversations/:conv_id/snapshot", h.snapshot)
	api.Post("/conversations/:conv_id/messages/:msg_id/reactions", h.addReaction)
	api.Delete("/conversations/:conv_id/messages/:msg_id/reactions", h.removeReaction)
	api.Post("/conversations/:conv_id/read", h.markRead)
	api.Post("/conversations/:conv_id/repair-status", h.repairStatus)
	api.Post("/conversations/:conv_id/typing/start", h.startTyping)
	api.Post("/conversations/:conv_id/typing/stop", h.stopTyping)
	api.Get("/conversations/:conv_id/typing", h.listTyping)
	api.Get("/rooms", h.activeRooms)

	return app
}

func bearerAuth(jv *auth.JWTValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hdr := c.Get("Authorization")
		if hdr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing auth"})
		}
		const pref = "Bearer "
		if len(hdr) <= len(pref) || hdr[:len(pref)] != pref {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid auth"})
		}
		sub, err := jv.Validate(hdr[len(pref):])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}
		c.Locals("user_id", sub)
		return c.Next()
	}
}
