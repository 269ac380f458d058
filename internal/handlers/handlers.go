package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/auth"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/aws"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/config"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/idempotency"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/offers"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/orders"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/tasks"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/validation"
)

// HandlerConfig groups dependencies for the API handlers.
type HandlerConfig struct {
	DynamoDBClient aws.DynamoDBAPI
	SQSClient      aws.SQSAPI
	CloudWatch     aws.CloudWatchAPI
	Cfg            *config.Config
	TTLWindow      time.Duration
}

// Register wires stores, services and routes onto the engine.
func Register(r *gin.Engine, hc HandlerConfig) {
	v := validation.New()

	offerStore := offers.NewStore(hc.DynamoDBClient, hc.Cfg.Tables.Offers, hc.Cfg.Tables.OfferUsage)
	offerValidator := offers.NewValidator(offerStore)
	orderStore := orders.NewStore(hc.DynamoDBClient, hc.Cfg.Tables.Orders, hc.Cfg.Tables.Counters)
	taskStore := tasks.NewStore(hc.DynamoDBClient, hc.Cfg.Tables.Tasks)
	taskSvc := tasks.NewService(taskStore, orderStore)

	idempStore := idempotency.NewStore(hc.DynamoDBClient, hc.Cfg.Tables.Idempotency, hc.TTLWindow)

	var publisher *aws.Publisher
	if hc.SQSClient != nil && hc.Cfg.Queue.ProfileUpsertURL != "" {
		publisher = aws.NewPublisher(hc.SQSClient, hc.Cfg.Queue.ProfileUpsertURL)
	}
	var metrics *aws.Metrics
	if hc.CloudWatch != nil && hc.Cfg.MetricsNamespace != "" {
		metrics = aws.NewMetrics(hc.CloudWatch, hc.Cfg.MetricsNamespace)
	}

	orderSvc := orders.NewService(orderStore, offerStore, offerValidator, taskSvc, idempStore, publisher, metrics)

	authed := r.Group("/", auth.Middleware(hc.Cfg.Auth.JWTSecret))

	registerOrderRoutes(authed, v, orderSvc)
	registerTaskRoutes(authed, v, taskSvc)
	registerOfferRoutes(authed, v, offerStore, offerValidator)
}

// writeError maps domain failures to typed, user-presentable responses. Each
// offer failure names its specific reason so manual code entry and the
// suggestion list give consistent feedback.
func writeError(c *gin.Context, err error) {
	type mapping struct {
		target error
		status int
		code   string
	}
	mappings := []mapping{
		{orders.ErrOrderNotFound, http.StatusNotFound, "order_not_found"},
		{orders.ErrIllegalTransition, http.StatusConflict, "illegal_transition"},
		{orders.ErrStatusConflict, http.StatusConflict, "status_conflict"},
		{orders.ErrPrerequisiteNotMet, http.StatusUnprocessableEntity, "prerequisite_not_met"},
		{orders.ErrNotRefundEligible, http.StatusUnprocessableEntity, "not_refund_eligible"},
		{orders.ErrPaymentNotConfirmed, http.StatusBadRequest, "payment_not_confirmed"},
		{orders.ErrIdempotencyConflict, http.StatusConflict, "idempotency_conflict"},
		{tasks.ErrTaskNotFound, http.StatusNotFound, "task_not_found"},
		{offers.ErrOfferNotFound, http.StatusNotFound, "offer_not_found"},
		{offers.ErrOfferInactive, http.StatusUnprocessableEntity, "offer_inactive"},
		{offers.ErrOfferExpired, http.StatusUnprocessableEntity, "offer_expired"},
		{offers.ErrMinOrderNotMet, http.StatusUnprocessableEntity, "min_order_not_met"},
		{offers.ErrUsageLimitReached, http.StatusUnprocessableEntity, "usage_limit_reached"},
		{offers.ErrAlreadyUsed, http.StatusConflict, "offer_already_used"},
		{offers.ErrNotEligible, http.StatusUnprocessableEntity, "not_eligible"},
		{offers.ErrCodeExists, http.StatusConflict, "offer_code_exists"},
		{auth.ErrForbidden, http.StatusForbidden, "forbidden"},
	}
	for _, m := range mappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, gin.H{"error": m.code, "detail": err.Error()})
			return
		}
	}
	log.Printf("handlers: internal error: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

// mustActor pulls the authenticated actor; Middleware guarantees presence on
// authed routes.
func mustActor(c *gin.Context) (auth.Actor, bool) {
	actor, ok := auth.FromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
	}
	return actor, ok
}
