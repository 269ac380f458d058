package main

// ProfileMessage is the payload sent from API -> SQS -> worker. It mirrors
// aws.ProfileUpsertMessage on the wire.
type ProfileMessage struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
}
