package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"gptclone/internal/model"
	"gptclone/internal/service"
)

// ConversationHandler 对话管理处理器
type ConversationHandler struct {
	svc *service.ConversationService
}

// NewConversationHandler 创建对话管理处理器
func NewConversationHandler(svc *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// List 获取对话列表
// @Summary      获取对话列表
// @Description  按最近更新时间倒序返回对话
// @Tags         对话
// @Produce      json
// @Param        limit   query     int  false  "每页数量 (1-200，默认 50)"
// @Param        offset  query     int  false  "偏移量"
// @Success      200     {array}   model.Conversation
// @Failure      400     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /api/conversations [get]
func (h *ConversationHandler) List(c *gin.Context) {
	var q model.ListConversationsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortInvalidBody(c, err)
		return
	}

	convs, err := h.svc.List(c.Request.Context(), q.Limit, q.Offset)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, convs)
}

// Create 创建对话
// @Summary      创建对话
// @Description  请求体可省略，标题为空时由第一条消息生成
// @Tags         对话
// @Accept       json
// @Produce      json
// @Param        request  body      model.CreateConversationRequest  false  "创建对话请求"
// @Success      201      {object}  model.Conversation
// @Failure      400      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /api/conversations [post]
func (h *ConversationHandler) Create(c *gin.Context) {
	var req model.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		abortInvalidBody(c, err)
		return
	}

	conv, err := h.svc.Create(c.Request.Context(), req.Title)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, conv)
}

// Get 获取对话详情
// @Summary      获取对话详情
// @Tags         对话
// @Produce      json
// @Param        id   path      int  true  "对话ID"
// @Success      200  {object}  model.Conversation
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/conversations/{id} [get]
func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	conv, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

// Messages 获取对话消息
// @Summary      获取对话消息
// @Description  按时间正序返回对话内的全部消息
// @Tags         对话
// @Produce      json
// @Param        id   path      int  true  "对话ID"
// @Success      200  {array}   model.Message
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/conversations/{id}/messages [get]
func (h *ConversationHandler) Messages(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	msgs, err := h.svc.Messages(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, msgs)
}

// Delete 删除对话
// @Summary      删除对话
// @Description  同时删除对话内的全部消息
// @Tags         对话
// @Produce      json
// @Param        id   path      int  true  "对话ID"
// @Success      200  {object}  model.DeleteResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /api/conversations/{id} [delete]
func (h *ConversationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.DeleteResponse{ID: id, Deleted: true})
}
