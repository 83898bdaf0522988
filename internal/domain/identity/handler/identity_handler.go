package handler

import (
	"errors"
	"net/http"

	catalogService "gamevault/internal/domain/catalog/service"
	"gamevault/internal/domain/identity/service"
	"gamevault/pkg/response"

	"github.com/gin-gonic/gin"
)

type IdentityHandler struct {
	catalog   catalogService.CatalogService
	validator service.Validator
}

func NewIdentityHandler(catalog catalogService.CatalogService, validator service.Validator) *IdentityHandler {
	return &IdentityHandler{catalog: catalog, validator: validator}
}

// Check 直接校验一次玩家身份（修改资料弹窗使用，不经过结账会话）
func (h *IdentityHandler) Check(c *gin.Context) {
	game, err := h.catalog.GetGame(c.Request.Context(), c.Param("game"))
	if err != nil {
		if errors.Is(err, catalogService.ErrGameNotFound) {
			response.Error(c, http.StatusNotFound, response.ErrGameNotFound, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	res, err := h.validator.Validate(c.Request.Context(), game, c.Query("uid"), c.Query("server"))
	if err != nil {
		Fail(c, err)
		return
	}
	response.Success(c, res)
}

// Fail 身份校验错误到业务码的映射，结账模块复用
func Fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUIDRequired):
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
	case errors.Is(err, service.ErrServerRequired):
		response.Fail(c, response.ErrServerRequired, err.Error())
	case errors.Is(err, service.ErrValidationTimeout):
		response.Fail(c, response.ErrValidationTimeout, err.Error())
	case errors.Is(err, service.ErrValidationRejected), errors.Is(err, service.ErrNoUsername):
		response.Fail(c, response.ErrValidationRejected, err.Error())
	case errors.Is(err, service.ErrNetworkUnavailable):
		response.Fail(c, response.ErrNetworkUnavailable, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
