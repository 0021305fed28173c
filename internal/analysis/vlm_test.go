package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mealtrack/mealtrack/internal/config"
)

func testVLMConfig(baseURL string) config.VLMConfig {
	return config.VLMConfig{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		Model:       "Qwen2.5-VL-72B-Instruct",
		MaxTokens:   2048,
		Temperature: 0.0,
		Timeout:     5 * time.Second,
	}
}

func TestVisionAnalyzeSendsMultimodalRequest(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"success\":true,\"requestId\":\"img_1\",\"items\":[],\"errorMessage\":null}"}}]}`))
	}))
	defer srv.Close()

	v := NewVision(testVLMConfig(srv.URL))
	result, err := v.Analyze(context.Background(), []byte{0xFF, 0xD8}, "half eaten")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !result.Success || result.RequestID != "img_1" {
		t.Errorf("result = %+v", result)
	}

	if captured.Model != "Qwen2.5-VL-72B-Instruct" {
		t.Errorf("model = %q", captured.Model)
	}
	if captured.Temperature != 0.0 {
		t.Errorf("temperature = %v", captured.Temperature)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("messages = %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" {
		t.Errorf("first role = %q", captured.Messages[0].Role)
	}

	parts, ok := captured.Messages[1].Content.([]any)
	if !ok || len(parts) != 2 {
		t.Fatalf("user content = %#v", captured.Messages[1].Content)
	}
	text := parts[0].(map[string]any)["text"].(string)
	if !strings.Contains(text, "Additional Context from Audio Note: half eaten") {
		t.Error("prompt missing transcript context")
	}
	img := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	if !strings.HasPrefix(img, "data:image/jpeg;base64,") {
		t.Errorf("image url = %q", img[:30])
	}
}

func TestVisionAnalyzeStripsMarkdownFence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := "```json\n{\"success\": true, \"requestId\": \"img_2\", \"items\": [{\"name\": \"toast\", \"confidence\": 0.8, \"serving_size_grams\": 40, \"nutrition\": {\"calories\": 110, \"protein_g\": 3, \"fat_g\": 1, \"carbohydrates_g\": 20, \"sugar_g\": 2, \"fiber_g\": 1}}], \"errorMessage\": null}\n```"
		resp := chatResponse{Choices: []chatChoice{{}}}
		resp.Choices[0].Message.Content = content
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	v := NewVision(testVLMConfig(srv.URL))
	result, err := v.Analyze(context.Background(), []byte{0xFF, 0xD8}, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Name != "toast" {
		t.Errorf("items = %+v", result.Items)
	}
	if result.Items[0].Nutrition.Calories != 110 {
		t.Errorf("calories = %v", result.Items[0].Nutrition.Calories)
	}
}

func TestVisionAnalyzeMalformedOutputIsStructuredFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := chatResponse{Choices: []chatChoice{{}}}
		resp.Choices[0].Message.Content = "I see a plate of pasta but cannot produce JSON today."
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	v := NewVision(testVLMConfig(srv.URL))
	result, err := v.Analyze(context.Background(), []byte{0xFF, 0xD8}, "")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Success {
		t.Error("malformed output should map to Success=false")
	}
	if result.ErrorMessage == "" {
		t.Error("expected error message on structured failure")
	}
}

func TestVisionAnalyzeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewVision(testVLMConfig(srv.URL))
	if _, err := v.Analyze(context.Background(), []byte{0xFF, 0xD8}, ""); err == nil {
		t.Error("expected error on upstream failure")
	}
}
