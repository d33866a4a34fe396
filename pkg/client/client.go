// Package client is a small Go client for the iris prediction service.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to a running prediction server.
type Client struct {
	base string
	rest *resty.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(5 * time.Second)
	}
	return &Client{base: base, rest: r}
}

// Health is the /health response body.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Prediction is the /predict response body.
type Prediction struct {
	Prediction       int     `json:"prediction"`
	ClassName        string  `json:"class_name"`
	ProcessingTimeMS float64 `json:"processing_time_ms"`
}

type errorBody struct {
	Error string `json:"error"`
}

// Health fetches the service health state. The endpoint always answers
// 200; the Status field carries the artifact state.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&h).
		Get(c.base + "/health")
	if err != nil {
		return Health{}, err
	}
	if resp.IsError() {
		return Health{}, fmt.Errorf("health: unexpected status %d", resp.StatusCode())
	}
	return h, nil
}

// Predict submits one feature record, keyed by the canonical feature
// names, and returns the prediction.
func (c *Client) Predict(ctx context.Context, record map[string]float64) (Prediction, error) {
	var (
		p Prediction
		e errorBody
	)
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(record).
		SetResult(&p).
		SetError(&e).
		Post(c.base + "/predict")
	if err != nil {
		return Prediction{}, err
	}
	if resp.IsError() {
		if e.Error != "" {
			return Prediction{}, fmt.Errorf("predict: %s", e.Error)
		}
		return Prediction{}, fmt.Errorf("predict: unexpected status %d", resp.StatusCode())
	}
	return p, nil
}
