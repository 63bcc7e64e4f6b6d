package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tojsavdo/orderpush/internal/order"
)

// @Summary Submit an order
// @Accept json
// @Produce json
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /orders [post]
func submitOrderHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var raw order.RawInput
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		o, err := svc.Submit(c.Request.Context(), raw)
		if err != nil {
			var verr *order.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store order"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order_id": o.ID})
	}
}

type updateStatusRequest struct {
	Status         string `json:"status"`
	NotifyCustomer *bool  `json:"notify_customer"`
}

// @Summary Update an order's status
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/status [put]
func updateOrderStatusHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		target, ok := order.ParseStatus(req.Status)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		notify := true
		if req.NotifyCustomer != nil {
			notify = *req.NotifyCustomer
		}

		o, err := svc.UpdateStatus(c.Request.Context(), c.Param("id"), target, notify)
		switch {
		case errors.Is(err, order.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		case errors.Is(err, order.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update order"})
		default:
			c.JSON(http.StatusOK, gin.H{"order_id": o.ID, "status": o.Status})
		}
	}
}

// @Summary List orders, newest first
// @Produce json
// @Success 200 {object} map[string]any
// @Router /orders [get]
func listOrdersHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := svc.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list orders"})
			return
		}
		if orders == nil {
			orders = []order.Order{}
		}
		c.JSON(http.StatusOK, gin.H{"items": orders})
	}
}

type registerTokenRequest struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
}

// @Summary Register a delivery token for an owner identity
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 400 {object} map[string]string
// @Router /tokens/register [post]
func registerTokenHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		if err := svc.RegisterToken(c.Request.Context(), req.Token, req.Owner); err != nil {
			var verr *order.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not register token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// @Summary Subscribe a delivery token to the admin topic
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /tokens/subscribe [post]
func subscribeTokenHandler(svc *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
		success, failure, err := svc.SubscribeAdmin(c.Request.Context(), req.Token)
		if err != nil {
			var verr *order.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
				return
			}
			c.JSON(http.StatusBadGateway, gin.H{"error": "subscription failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "success_count": success, "failure_count": failure})
	}
}
