package router

import (
	"net/http"

	"campusfound/internal/handlers"
	"campusfound/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	authHandler := handlers.NewAuthHandler()
	itemHandler := handlers.NewItemReportHandler()
	claimHandler := handlers.NewClaimHandler()

	// Public routes
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/items") })
	r.GET("/items", itemHandler.List)
	r.GET("/items/:id", itemHandler.Detail)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// Authenticated routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/items/new", itemHandler.ShowCreate)
		authorized.POST("/items/new", itemHandler.Create)
		authorized.GET("/items/:id/edit", itemHandler.ShowEdit)
		authorized.POST("/items/:id/edit", itemHandler.Edit)
		authorized.GET("/items/:id/delete", itemHandler.ShowDelete)
		authorized.POST("/items/:id/delete", itemHandler.Delete)

		authorized.GET("/items/:id/claim", claimHandler.ShowCreate)
		authorized.POST("/items/:id/claim", claimHandler.Create)
	}

	// Admin routes
	admin := r.Group("/")
	admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
	{
		admin.GET("/claims", claimHandler.List)
		admin.GET("/claims/:id", claimHandler.Detail)
		admin.GET("/claims/:id/edit", claimHandler.ShowEdit)
		admin.POST("/claims/:id/edit", claimHandler.Edit)
		admin.GET("/claims/:id/delete", claimHandler.ShowDelete)
		admin.POST("/claims/:id/delete", claimHandler.Delete)
		admin.GET("/claims/:id/approve", claimHandler.Approve)
		admin.GET("/claims/:id/reject", claimHandler.Reject)

		admin.POST("/items/:id/reopen", itemHandler.Reopen)
	}
}
