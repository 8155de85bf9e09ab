package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"halbot/internal/infra/config"
)

func TestImageClient_Generate(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	var gotReq imageRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	}))
	defer srv.Close()

	c := NewImageClient(
		config.ProviderConfig{BaseURL: srv.URL, APIKey: "k"},
		config.ImageConfig{Model: "dall-e-3", Quality: "hd", Style: "vivid"},
		nopLogger(),
	)

	data, err := c.Generate(context.Background(), "a red fox", "1024x1024")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.Equal(data, png) {
		t.Errorf("decoded bytes mismatch: %v", data)
	}

	if gotReq.Prompt != "a red fox" || gotReq.Model != "dall-e-3" ||
		gotReq.Quality != "hd" || gotReq.Style != "vivid" {
		t.Errorf("unexpected request: %+v", gotReq)
	}
	if gotReq.N != 1 || gotReq.ResponseFormat != "b64_json" {
		t.Errorf("want single b64_json image per call, got %+v", gotReq)
	}
}

func TestImageClient_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": []map[string]string{}})
	}))
	defer srv.Close()

	c := NewImageClient(config.ProviderConfig{BaseURL: srv.URL}, config.ImageConfig{}, nopLogger())
	if _, err := c.Generate(context.Background(), "a red fox", "1024x1024"); err == nil {
		t.Fatal("expected error for empty data")
	}
}
