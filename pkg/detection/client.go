// Package detection sends captured frames to an object detection service and
// returns the labels it predicts.
package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"greenbite/domain"

	"github.com/go-resty/resty/v2"
)

type Prediction struct {
	Item       string  `json:"item"`
	Confidence float64 `json:"confidence"`
}

// Result holds the predictions ordered best first. An empty result means
// the service answered but saw nothing.
type Result struct {
	Predictions []Prediction `json:"predictions"`
}

func (r Result) Empty() bool {
	return len(r.Predictions) == 0
}

// Top returns the highest ranked prediction.
func (r Result) Top() (Prediction, bool) {
	if r.Empty() {
		return Prediction{}, false
	}
	return r.Predictions[0], true
}

type Detector interface {
	Detect(ctx context.Context, image []byte) (Result, error)
}

// Client talks to the YOLO style /predict endpoint. It makes a single attempt
// per call; retry policy belongs to the caller.
type Client struct {
	client *resty.Client
}

func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second)

	return &Client{client: c}
}

func (c *Client) Detect(ctx context.Context, image []byte) (Result, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("image", "frame.jpg", bytes.NewReader(image)).
		Post("/predict")
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrDetectionService, err)
	}
	if !resp.IsSuccess() {
		return Result{}, fmt.Errorf("%w: status %d: %s", domain.ErrDetectionService, resp.StatusCode(), resp.String())
	}

	var result Result
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return Result{}, fmt.Errorf("%w: decode response: %v", domain.ErrDetectionService, err)
	}
	return result.withoutBlankLabels(), nil
}

func (r Result) withoutBlankLabels() Result {
	kept := make([]Prediction, 0, len(r.Predictions))
	for _, p := range r.Predictions {
		if p.Item != "" {
			kept = append(kept, p)
		}
	}
	return Result{Predictions: kept}
}
