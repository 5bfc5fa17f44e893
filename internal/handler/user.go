package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newhorizons/case-service/internal/model"
	"github.com/newhorizons/case-service/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	svc *service.UserService
	log *zap.Logger
}

func NewUserHandler(svc *service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: log}
}

type listUsersQuery struct {
	Role string `form:"role" binding:"omitempty,oneof=ADMIN ADVISOR CLIENT"`
}

func (h *UserHandler) List(c *gin.Context) {
	var q listUsersQuery
	if !bindQuery(c, h.log, &q) {
		return
	}
	users, err := h.svc.List(c.Request.Context(), actor(c), model.Role(q.Role))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=ADMIN ADVISOR CLIENT"`
}

func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bind(c, h.log, &req) {
		return
	}
	u, err := h.svc.Create(c.Request.Context(), actor(c), service.CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     model.Role(req.Role),
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": u})
}

type updateUserRequest struct {
	Name *string `json:"name" binding:"omitempty,min=1"`
	Role *string `json:"role" binding:"omitempty,oneof=ADMIN ADVISOR CLIENT"`
}

func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if !bind(c, h.log, &req) {
		return
	}
	in := service.UpdateUserInput{Name: req.Name}
	if req.Role != nil {
		r := model.Role(*req.Role)
		in.Role = &r
	}
	u, err := h.svc.Update(c.Request.Context(), actor(c), c.Param("id"), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}
