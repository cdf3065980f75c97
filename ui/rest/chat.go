package rest

import (
	"github.com/gofiber/fiber/v2"

	domainChat "github.com/karacho11/first-chatbot-back/domains/chat"
	pkgError "github.com/karacho11/first-chatbot-back/pkg/error"
	"github.com/karacho11/first-chatbot-back/pkg/utils"
)

type Chat struct {
	Service domainChat.IChatUsecase
}

func InitRestChat(app fiber.Router, service domainChat.IChatUsecase) Chat {
	rest := Chat{Service: service}
	app.Post("/chat", rest.CreateChat)
	app.Get("/chat/history/:userName", rest.GetHistory)
	app.Delete("/chat/history/:userName", rest.ClearHistory)
	app.Get("/chat/snapshots/:userName", rest.ListSnapshots)
	app.Get("/chat/snapshots/:userName/:timestamp", rest.GetSnapshot)

	return rest
}

func (handler *Chat) CreateChat(c *fiber.Ctx) error {
	var request domainChat.CreateChatRequest
	if err := c.BodyParser(&request); err != nil {
		panic(pkgError.ValidationError("invalid request body: " + err.Error()))
	}

	response, err := handler.Service.CreateChat(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Chat completed",
		Results: response,
	})
}

func (handler *Chat) GetHistory(c *fiber.Ctx) error {
	turns, err := handler.Service.GetHistory(c.UserContext(), c.Params("userName"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "History retrieved",
		Results: turns,
	})
}

func (handler *Chat) ClearHistory(c *fiber.Ctx) error {
	err := handler.Service.ClearHistory(c.UserContext(), c.Params("userName"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "History cleared",
	})
}

func (handler *Chat) ListSnapshots(c *fiber.Ctx) error {
	snaps, err := handler.Service.ListSnapshots(c.UserContext(), c.Params("userName"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversation snapshots retrieved",
		Results: snaps,
	})
}

func (handler *Chat) GetSnapshot(c *fiber.Ctx) error {
	snap, err := handler.Service.GetSnapshot(c.UserContext(), c.Params("userName"), c.Params("timestamp"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Conversation snapshot retrieved",
		Results: snap,
	})
}
