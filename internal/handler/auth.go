package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/middleware"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

type AuthHandler struct {
	svc    *service.AuthService
	cookie middleware.Cookie
	log    *zap.Logger
}

func NewAuthHandler(svc *service.AuthService, cookie middleware.Cookie, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie, log: log}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	// Role is accepted for compatibility and ignored: self-registration always yields a CLIENT.
	Role string `json:"role" binding:"omitempty,oneof=ADMIN ADVISOR CLIENT"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if !bind(c, h.log, &req) {
		return
	}
	u, sess, err := h.svc.Signup(c.Request.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.cookie.Set(c, sess)
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, h.log, &req) {
		return
	}
	u, sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.cookie.Set(c, sess)
	c.JSON(http.StatusOK, gin.H{"user": u})
}

// Logout is idempotent: without a session it still answers 200.
func (h *AuthHandler) Logout(c *gin.Context) {
	id, fromCookie := h.cookie.Read(c)
	if id == "" {
		c.Status(http.StatusOK)
		return
	}
	if err := h.svc.Logout(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	if fromCookie {
		h.cookie.Clear(c)
	}
	c.Status(http.StatusOK)
}

func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": middleware.UserFrom(c)})
}

func (h *AuthHandler) LoginAs(c *gin.Context) {
	u, sess, err := h.svc.LoginAs(c.Request.Context(), actor(c), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.cookie.Set(c, sess)
	c.JSON(http.StatusOK, gin.H{"user": u})
}
