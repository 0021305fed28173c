package analysis

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mealtrack/mealtrack/internal/config"
)

func TestTranscribeSendsMultipartWithKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-API-Key"); got != "secret" {
			t.Errorf("x-api-key = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart: %v", err)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("language = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "note.m4a" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "fake-audio" {
			t.Errorf("payload = %q", data)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "two eggs and toast"}`))
	}))
	defer srv.Close()

	tr := NewTranscriber(config.WhisperConfig{
		URL:      srv.URL,
		APIKey:   "secret",
		Language: "en",
		Timeout:  5 * time.Second,
	})

	text, err := tr.Transcribe(context.Background(), "note.m4a", []byte("fake-audio"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "two eggs and toast" {
		t.Errorf("text = %q", text)
	}
}

func TestTranscribeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := NewTranscriber(config.WhisperConfig{URL: srv.URL, APIKey: "wrong", Language: "en", Timeout: time.Second})
	if _, err := tr.Transcribe(context.Background(), "note.m4a", []byte("x")); err == nil {
		t.Error("expected error on non-200")
	}
}
