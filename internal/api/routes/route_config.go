package routes

import (
	"greenbite/internal/api/handlers"
	"greenbite/internal/middleware"
	"greenbite/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App          *fiber.App
	FoodHandler  handlers.FoodHandler
	DraftHandler handlers.DraftHandler
	Middleware   middleware.Middleware
	JWTService   jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.GuestRoute()
	c.FoodItems()
	c.Drafts()
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}

func (c *Config) FoodItems() {
	foodItems := c.App.Group("/api/v1/food-items", c.Middleware.AuthMiddleware(c.JWTService))
	foodItems.Get("/dashboard", c.FoodHandler.GetDashboardStats)
	foodItems.Get("/live", c.FoodHandler.StreamFoodItems)

	// Basic CRUD operations
	foodItems.Post("", c.FoodHandler.AddFoodItem)
	foodItems.Get("", c.FoodHandler.GetFoodItems)
	foodItems.Patch("/:id", c.FoodHandler.UpdateFoodItem)
	foodItems.Delete("/:id", c.FoodHandler.DeleteFoodItem)
	foodItems.Put("/:id/alert", c.FoodHandler.ToggleAlert)

	// Special operations
	foodItems.Post("/detect", c.FoodHandler.DetectFoodItem)
	foodItems.Post("/:id/edit", c.DraftHandler.EditFoodItem)
}

func (c *Config) Drafts() {
	drafts := c.App.Group("/api/v1/drafts", c.Middleware.AuthMiddleware(c.JWTService))
	drafts.Get("", c.DraftHandler.GetDraft)
	drafts.Patch("", c.DraftHandler.UpdateDraft)
	drafts.Delete("", c.DraftHandler.DiscardDraft)
	drafts.Post("/expiry", c.DraftHandler.ExtractExpiry)
	drafts.Post("/submit", c.DraftHandler.SubmitDraft)
}
