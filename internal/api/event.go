package api

import "encoding/json"

type ConnectInput struct {
	Path string `json:"path"`
}

type WebhookInput struct {
	Data json.RawMessage `json:"data"`
}

type HealthOutput struct {
	Success    bool   `json:"success"`
	Subscribed bool   `json:"subscribed"`
	Session    string `json:"session,omitempty"`
	Client     bool   `json:"client"`
	Events     int    `json:"events"`
}
