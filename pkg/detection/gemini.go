package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"greenbite/domain"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiPrompt = "List the food items visible in this image. Respond ONLY with a valid JSON object of the form " +
	`{"predictions":[{"item":"<food name>","confidence":<number between 0 and 1>}]}` +
	", ordered by confidence, best first. Use an empty array if there is no food. Do not include any explanations or markdown."

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// GeminiDetector asks a Gemini vision model for food labels instead of a
// dedicated detection service.
type GeminiDetector struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiDetector(ctx context.Context, apiKey, modelName string) (*GeminiDetector, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	if modelName == "" {
		return nil, fmt.Errorf("GEMINI_MODEL not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	return &GeminiDetector{client: client, model: model}, nil
}

func (g *GeminiDetector) Detect(ctx context.Context, image []byte) (Result, error) {
	resp, err := g.model.GenerateContent(ctx, genai.ImageData("jpeg", image), genai.Text(geminiPrompt))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrDetectionService, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("%w: no content generated", domain.ErrDetectionService)
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return Result{}, fmt.Errorf("%w: generated content is not text", domain.ErrDetectionService)
	}

	result, err := parseGeminiPredictions(string(text))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", domain.ErrDetectionService, err)
	}
	return result, nil
}

func (g *GeminiDetector) Close() error {
	return g.client.Close()
}

// parseGeminiPredictions tolerates markdown fences and chatter around the
// JSON object.
func parseGeminiPredictions(text string) (Result, error) {
	text = strings.TrimSpace(text)
	if match := jsonObjectPattern.FindString(text); match != "" {
		text = match
	}

	var result Result
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return Result{}, fmt.Errorf("failed to parse Gemini response: %v - raw response: %s", err, text)
	}

	for i := range result.Predictions {
		if result.Predictions[i].Confidence < 0 || result.Predictions[i].Confidence > 1 {
			result.Predictions[i].Confidence = 0.5
		}
	}
	sort.SliceStable(result.Predictions, func(i, j int) bool {
		return result.Predictions[i].Confidence > result.Predictions[j].Confidence
	})
	return result.withoutBlankLabels(), nil
}
