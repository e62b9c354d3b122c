// Package extraction reads expiry dates from label photos through the OCR
// upload service.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"greenbite/domain"

	"github.com/go-resty/resty/v2"
	"github.com/gofiber/fiber/v2/log"
)

// noDateMessage is what the OCR service answers with a 400 when the label
// carries no readable date.
const noDateMessage = "No expiry date found"

// Date shapes produced by the OCR service or by ISO clients. Slash and dash
// forms are read month first.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
	"1-2-2006",
	"1.2.2006",
	"1/2/06",
	"1-2-06",
}

type Extractor interface {
	ExtractExpiry(ctx context.Context, filename string, r io.Reader) (*time.Time, error)
}

type Client struct {
	client *resty.Client
}

func NewClient(baseURL string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second)

	return &Client{client: c}
}

type uploadResponse struct {
	ExpiryDate string `json:"expiry_date"`
	Error      string `json:"error"`
}

// ExtractExpiry uploads the image and returns the date found on it. A nil
// date with a nil error means the service read the image but found no date.
func (c *Client) ExtractExpiry(ctx context.Context, filename string, r io.Reader) (*time.Time, error) {
	if filename == "" {
		filename = "label.jpg"
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, r).
		Post("/upload")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExtractionService, err)
	}

	var body uploadResponse
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if !resp.IsSuccess() {
		if resp.StatusCode() == http.StatusBadRequest && decodeErr == nil && body.Error == noDateMessage {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrExtractionService, resp.StatusCode(), resp.String())
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrExtractionService, decodeErr)
	}
	if body.ExpiryDate == "" {
		return nil, nil
	}

	date, err := ParseDate(body.ExpiryDate)
	if err != nil {
		log.Warnf("extraction: ignoring unrecognized expiry date %q", body.ExpiryDate)
		return nil, nil
	}
	return &date, nil
}

// ParseDate reads a date in any of the shapes the OCR service emits.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
