package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/aws"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/config"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/handlers"
)

func setupRouter(hc handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.Register(r, hc)

	return r
}

func main() {
	clients, err := aws.NewClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	var cfg *config.Config
	if os.Getenv("RUN_LOCAL") == "true" {
		cfg = config.LoadWithDefaults()
	} else {
		cfg, err = config.Load()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	hc := handlers.HandlerConfig{
		DynamoDBClient: clients.DynamoDB,
		SQSClient:      clients.SQS,
		CloudWatch:     clients.CloudWatch,
		Cfg:            cfg,
		TTLWindow:      48 * time.Hour,
	}

	r := setupRouter(hc)

	// if environment variable RUN_LOCAL is set to "true", run local HTTP server for development.
	if os.Getenv("RUN_LOCAL") == "true" {
		log.Printf("running local server on %s", cfg.HTTP.Address)
		if err := r.Run(cfg.HTTP.Address); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	// lambda adapter
	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (interface{}, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
