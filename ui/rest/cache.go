package rest

import (
	"github.com/gofiber/fiber/v2"

	domainChat "github.com/karacho11/first-chatbot-back/domains/chat"
	"github.com/karacho11/first-chatbot-back/pkg/utils"
)

// UserCache exposes the short-lived profile entry of a user.
type UserCache struct {
	Service domainChat.IChatUsecase
}

func InitRestUserCache(app fiber.Router, service domainChat.IChatUsecase) UserCache {
	rest := UserCache{Service: service}
	app.Post("/users/:userName/cache", rest.CacheUserName)
	app.Get("/users/:userName/cache", rest.GetCachedUserName)

	return rest
}

func (handler *UserCache) CacheUserName(c *fiber.Ctx) error {
	profile, err := handler.Service.CacheUserName(c.UserContext(), c.Params("userName"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "User name cached",
		Results: profile,
	})
}

func (handler *UserCache) GetCachedUserName(c *fiber.Ctx) error {
	profile, err := handler.Service.GetCachedUserName(c.UserContext(), c.Params("userName"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Cached user retrieved",
		Results: profile,
	})
}
