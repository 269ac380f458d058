package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/vairanyaofficial/Vairanya-sub000/internal/aws"
	"github.com/vairanyaofficial/Vairanya-sub000/internal/config"
)

func main() {
	clients, err := aws.NewClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}
	cfg := config.LoadWithDefaults()

	p := NewProcessor(clients.DynamoDB, cfg.Tables.Customers)

	// If RUN_LOCAL=true, simulate a single SQS event for local testing.
	if os.Getenv("RUN_LOCAL") == "true" {
		testBody := os.Getenv("LOCAL_SQS_BODY")
		if testBody == "" {
			testBody = `{"customer_id":"local-cust-1","order_id":"local-order-1","order_number":"ORD-2026-00001"}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{
				{Body: testBody},
			},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
