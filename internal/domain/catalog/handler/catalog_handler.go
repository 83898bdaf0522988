package handler

import (
	"errors"
	"net/http"
	"strconv"

	"gamevault/internal/domain/catalog/model"
	"gamevault/internal/domain/catalog/service"
	"gamevault/internal/pkg/gateway"
	"gamevault/pkg/response"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	service service.CatalogService
}

func NewCatalogHandler(service service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// GameView 游戏详情，附服务器要求类型
type GameView struct {
	*model.Game
	ServerRequirement string `json:"serverRequirement"`
}

func (h *CatalogHandler) ListGames(c *gin.Context) {
	games, err := h.service.ListGames(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	views := make([]GameView, len(games))
	for i := range games {
		views[i] = GameView{Game: &games[i], ServerRequirement: model.ServerKind(games[i].ServerRequirement())}
	}
	response.Success(c, views)
}

func (h *CatalogHandler) GetGame(c *gin.Context) {
	game, err := h.service.GetGame(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, GameView{Game: game, ServerRequirement: model.ServerKind(game.ServerRequirement())})
}

func (h *CatalogHandler) ListProducts(c *gin.Context) {
	listing, err := h.service.ListProducts(c.Request.Context(), c.Param("key"), c.Query("region"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, listing)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid product id")
		return
	}
	product, err := h.service.GetProduct(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, product)
}

func (h *CatalogHandler) ListServers(c *gin.Context) {
	servers, err := h.service.ListServers(c.Request.Context(), c.Param("key"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, servers)
}

func (h *CatalogHandler) ListPaymentMethods(c *gin.Context) {
	methods, err := h.service.ListPaymentMethods(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Success(c, methods)
}

func (h *CatalogHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		response.Error(c, http.StatusNotFound, response.ErrGameNotFound, err.Error())
	case errors.Is(err, service.ErrProductNotFound):
		response.Error(c, http.StatusNotFound, response.ErrProductNotFound, err.Error())
	case errors.Is(err, service.ErrNoPaymentMethods):
		response.Fail(c, response.ErrServerInternal, err.Error())
	case errors.Is(err, gateway.ErrUnavailable), errors.Is(err, gateway.ErrTimeout):
		response.Error(c, http.StatusBadGateway, response.ErrNetworkUnavailable, "Could not load servers. Please try again.")
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
