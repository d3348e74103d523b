package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-service/middlewares"
	"storefront-service/models"
	"storefront-service/services"
	"storefront-service/utils"
)

type AuthController struct {
	users  *services.UserService
	tokens *utils.TokenManager
	logger *slog.Logger
}

func NewAuthController(users *services.UserService, tokens *utils.TokenManager, logger *slog.Logger) *AuthController {
	return &AuthController{users: users, tokens: tokens, logger: logger}
}

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (ac *AuthController) issue(c *gin.Context, status int, u models.User) {
	token, err := ac.tokens.GenerateToken(u.ID, u.Email, u.Name)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	respondOK(c, status, authResponse{Token: token, User: u})
}

// Register POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := ac.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	ac.logger.Info("user registered", "user_id", u.ID)
	ac.issue(c, http.StatusCreated, u)
}

// Login POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := ac.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	ac.issue(c, http.StatusOK, u)
}

// Me GET /api/user
func (ac *AuthController) Me(c *gin.Context) {
	u, err := ac.users.Get(c.Request.Context(), middlewares.UserID(c))
	if err != nil {
		respondError(c, ac.logger, err)
		return
	}
	respondOK(c, http.StatusOK, u)
}
