// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"accounts/internal/delivery/api/middleware"
	"accounts/internal/delivery/api/router/handler"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// PrefixAPI is the path prefix of every JSON endpoint.
const PrefixAPI = "/api"

type RouterParams struct {
	fx.In

	UserHandler     *handler.UserHandler
	PasswordHandler *handler.PasswordHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

// router holds all the handlers that need to be registered.
type router struct {
	userHandler     *handler.UserHandler
	passwordHandler *handler.PasswordHandler
	authMiddleware  *middleware.AuthMiddleware
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		userHandler:     params.UserHandler,
		passwordHandler: params.PasswordHandler,
		authMiddleware:  params.AuthMiddleware,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)

	api := e.Group(PrefixAPI)
	{
		api.POST("/register", r.userHandler.Register)
		api.POST("/login", r.userHandler.Login)
		api.POST("/forget-password", r.passwordHandler.ForgetPassword)
		api.POST("/reset-password", r.passwordHandler.ResetPassword)
	}

	// Account routes act on the caller's own account only.
	self := []echo.MiddlewareFunc{r.authMiddleware.Authenticate, r.authMiddleware.RequireSelf("id")}
	{
		api.GET("/get/:id", r.userHandler.GetUser, self...)
		api.PUT("/edit/:id", r.userHandler.EditUser, self...)
		api.PUT("/change-password/:id", r.passwordHandler.ChangePassword, self...)
	}
}
