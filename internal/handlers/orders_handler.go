package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/orders"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/validation"
)

func registerOrderRoutes(r *gin.RouterGroup, v *validatorv10.Validate, svc *orders.Service) {
	r.POST("/orders", func(c *gin.Context) {
		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		order, err := svc.Create(c.Request.Context(), orders.CreateInput{
			CustomerID:       req.CustomerID,
			CustomerEmail:    req.CustomerEmail,
			CustomerName:     req.CustomerName,
			CustomerPhone:    req.CustomerPhone,
			ShippingAddress:  req.ShippingAddress,
			Subtotal:         req.Subtotal,
			Shipping:         req.Shipping,
			PaymentMethod:    req.PaymentMethod,
			PaymentConfirmed: req.PaymentConfirmed,
			OfferCode:        req.OfferCode,
			IdempotencyKey:   c.GetHeader("Idempotency-Key"),
			CorrelationID:    c.GetHeader("X-Request-Id"),
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.Header("Location", "/orders/"+order.ID)
		c.JSON(http.StatusCreated, order)
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		order, err := svc.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"order":           order,
			"refund_eligible": order.RefundEligible(),
		})
	})

	r.POST("/orders/:id/status", func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		var req validation.TransitionRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		order, err := svc.Transition(c.Request.Context(), c.Param("id"), req.Status, actor)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})

	r.POST("/orders/:id/assign", func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		var req validation.AssignRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		order, err := svc.Assign(c.Request.Context(), c.Param("id"), req.WorkerID, actor)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})

	r.POST("/orders/:id/refund", func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		var req validation.RefundRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		order, err := svc.UpdateRefund(c.Request.Context(), c.Param("id"), req.RefundStatus, req.RefundReference, req.Notes, actor)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	})
}
