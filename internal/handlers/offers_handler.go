package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/auth"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/offers"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/validation"
)

func registerOfferRoutes(r *gin.RouterGroup, v *validatorv10.Validate, store *offers.Store, validator *offers.Validator) {
	r.POST("/offers/validate", func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		var req validation.ValidateOfferRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		customer := offers.Customer{ID: actor.ID, Email: actor.Email}
		validated, err := validator.Validate(c.Request.Context(), req.Code, req.Subtotal, customer)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"offer":    validated.Offer,
			"discount": validated.Discount,
		})
	})

	r.GET("/offers/eligible", func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		var subtotal float64
		if s := c.Query("subtotal"); s != "" {
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil || parsed < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_subtotal"})
				return
			}
			subtotal = parsed
		}
		customer := offers.Customer{ID: actor.ID, Email: actor.Email}
		eligible, err := validator.EligibleOffers(c.Request.Context(), customer, subtotal)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"offers": eligible})
	})

	r.POST("/admin/offers", func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		if !actor.Admin() {
			writeError(c, auth.ErrForbidden)
			return
		}
		var req validation.CreateOfferRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		validFrom, err := time.Parse(time.RFC3339, req.ValidFrom)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_valid_from"})
			return
		}
		validUntil, err := time.Parse(time.RFC3339, req.ValidUntil)
		if err != nil || !validUntil.After(validFrom) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_valid_until"})
			return
		}
		offer := offers.Offer{
			ID:             uuid.NewString(),
			Code:           req.Code,
			Description:    req.Description,
			DiscountType:   req.DiscountType,
			DiscountValue:  req.DiscountValue,
			MaxDiscount:    req.MaxDiscount,
			MinOrderAmount: req.MinOrderAmount,
			CustomerEmail:  req.CustomerEmail,
			CustomerEmails: req.CustomerEmails,
			CustomerID:     req.CustomerID,
			CustomerIDs:    req.CustomerIDs,
			ValidFrom:      validFrom,
			ValidUntil:     validUntil,
			IsActive:       req.IsActive,
			UsageLimit:     req.UsageLimit,
			OneTimePerUser: req.OneTimePerUser,
		}
		if err := store.Put(c.Request.Context(), &offer); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, offer)
	})
}
