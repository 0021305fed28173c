package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mealtrack/mealtrack/internal/config"
)

const systemPrompt = "You are an expert nutrition assistant. Your task is to accurately identify all food items in the provided image, estimate their serving size in grams, and calculate their complete nutritional information. You must respond only with the requested JSON object."

const schemaTemplate = `{
  "success": true,
  "requestId": "img_analysis_...",
  "items": [
    {
      "name": "Grilled Chicken Breast",
      "confidence": 0.9,
      "serving_size_grams": 150,
      "nutrition": {
        "calories": 248,
        "protein_g": 46.5,
        "fat_g": 5.4,
        "carbohydrates_g": 0,
        "sugar_g": 0,
        "fiber_g": 0
      }
    }
  ],
  "errorMessage": null
}`

// Vision analyzes a meal photo and returns a structured nutritional
// breakdown.
type Vision interface {
	Analyze(ctx context.Context, jpegImage []byte, transcript string) (*Result, error)
}

// chatRequest targets an OpenAI-compatible chat-completions endpoint.
// The user message carries multimodal content parts.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type vlmClient struct {
	cfg    config.VLMConfig
	client *http.Client
}

func NewVision(cfg config.VLMConfig) Vision {
	return &vlmClient{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *vlmClient) Analyze(ctx context.Context, jpegImage []byte, transcript string) (*Result, error) {
	encoded := base64.StdEncoding.EncodeToString(jpegImage)

	request := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentPart{
				{Type: "text", Text: buildPrompt(transcript)},
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + encoded}},
			}},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling vision model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vision model returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("vision model error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("vision model returned no choices")
	}

	return parseResult(chatResp.Choices[0].Message.Content)
}

// parseResult turns raw model output into a Result. Malformed output is
// a structured failure rather than a transport error, so callers can
// report it to the client as an analysis miss.
func parseResult(content string) (*Result, error) {
	raw, err := extractJSON(content)
	if err != nil {
		return failedResult("", "model returned no parseable result"), nil
	}

	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return failedResult("", "model returned malformed result"), nil
	}
	if result.Items == nil {
		result.Items = []Item{}
	}
	return &result, nil
}

func buildPrompt(transcript string) string {
	var b strings.Builder
	b.WriteString("Analyze the attached meal image and provide a detailed nutritional breakdown. Identify each distinct food item, estimate its weight in grams, and list its core nutritional facts.\n\n")
	b.WriteString("Return a JSON object matching this exact schema:\n")
	b.WriteString(schemaTemplate)
	b.WriteString("\n\nRULES:\n")
	b.WriteString("- `success`: Set to `true` if food is found, `false` otherwise.\n")
	b.WriteString("- `requestId`: Generate a unique ID for this analysis.\n")
	b.WriteString("- `items`: Create one object for *each* distinct food item in the image.\n")
	b.WriteString("- `confidence`: Your confidence (0.0 to 1.0).\n")
	b.WriteString("- `serving_size_grams`: Your best estimate of the item's weight in grams.\n")
	b.WriteString("- `nutrition`: The nutritional info for that *single item*.\n")
	b.WriteString("- `errorMessage`: Set to a reason if `success` is `false`, otherwise `null`.\n\n")
	b.WriteString("Return *only* the JSON object and nothing else.")
	if transcript != "" {
		b.WriteString("\n\nAdditional Context from Audio Note: ")
		b.WriteString(transcript)
	}
	return b.String()
}
