package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"halbot/internal/domain"
)

func TestRNGTool_InRange(t *testing.T) {
	tool := NewRNGTool(nopLogger())

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"min":1,"max":6,"n":20}`), domain.NewPendingFiles())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", result.Content)
	}

	var out struct {
		Result []int `json:"result"`
	}
	if err := json.Unmarshal([]byte(result.Content), &out); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if len(out.Result) != 20 {
		t.Fatalf("want 20 numbers, got %d", len(out.Result))
	}
	for _, v := range out.Result {
		if v < 1 || v > 6 {
			t.Errorf("value %d out of [1,6]", v)
		}
	}
}

func TestRNGTool_DefaultCount(t *testing.T) {
	tool := NewRNGTool(nopLogger())

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"min":5,"max":5}`), domain.NewPendingFiles())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var out struct {
		Result []int `json:"result"`
	}
	if err := json.Unmarshal([]byte(result.Content), &out); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if len(out.Result) != 1 {
		t.Fatalf("want 1 number, got %d", len(out.Result))
	}
	if out.Result[0] != 5 {
		t.Errorf("degenerate range must yield 5, got %d", out.Result[0])
	}
}

func TestRNGTool_MaxLessThanMin(t *testing.T) {
	tool := NewRNGTool(nopLogger())

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"min":10,"max":2}`), domain.NewPendingFiles())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.Content, "must not be less than") {
		t.Errorf("unexpected message: %s", result.Content)
	}
}

func TestRNGTool_CountCapped(t *testing.T) {
	tool := NewRNGTool(nopLogger())

	result, err := tool.Execute(context.Background(),
		json.RawMessage(`{"min":0,"max":1,"n":999999}`), domain.NewPendingFiles())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var out struct {
		Result []int `json:"result"`
	}
	if err := json.Unmarshal([]byte(result.Content), &out); err != nil {
		t.Fatalf("parse result: %v", err)
	}
	if len(out.Result) != maxRNGCount {
		t.Errorf("want count capped at %d, got %d", maxRNGCount, len(out.Result))
	}
}
