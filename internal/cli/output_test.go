package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/models"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{" JSON ", OutputJSON, false},
		{"compact", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, models.ErrInvalidArgument) {
				t.Errorf("ParseFormat(%q) err = %v, want ErrInvalidArgument", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func sampleAnswer() *models.Answer {
	return &models.Answer{
		ID:        "a-1",
		Question:  "How many vacation days?",
		Text:      "Based on the documents: Employees receive 15 vacation days.",
		Status:    models.StatusOK,
		Requested: models.StrategyTemplate,
		Used:      models.StrategyTemplate,
		Sources: []models.Source{
			{DocumentID: "hr-policy", ChunkIndex: 0, Score: 0.71},
		},
		TookMs: 3,
	}
}

func TestWriteAnswer_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputText); err != nil {
		t.Fatalf("WriteAnswer: %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"15 vacation days", "template answer", "hr-policy#0", "0.7100"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteAnswer_fallback(t *testing.T) {
	a := sampleAnswer()
	a.Requested = models.StrategyGenerative
	a.Fallback = true
	a.FallbackReason = "generator timed out"
	a.Status = models.StatusDegraded
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, a, OutputText); err != nil {
		t.Fatalf("WriteAnswer: %v", err)
	}
	if !strings.Contains(buf.String(), "generator timed out") {
		t.Errorf("fallback reason not shown:\n%s", buf.String())
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputJSON); err != nil {
		t.Fatalf("WriteAnswer: %v", err)
	}
	var decoded models.Answer
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Status != models.StatusOK || len(decoded.Sources) != 1 || decoded.Sources[0].DocumentID != "hr-policy" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWritePassages(t *testing.T) {
	hits := []models.ScoredChunk{
		{Chunk: models.Chunk{DocumentID: "it-support", ChunkIndex: 2, Content: "Reset your password at the portal."}, Score: 0.5},
	}
	var buf bytes.Buffer
	if err := WritePassages(&buf, PassagesFromHits(hits), OutputText); err != nil {
		t.Fatalf("WritePassages: %v", err)
	}
	for _, sub := range []string{"Rank: 1", "it-support#2", "Reset your password"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("output missing %q:\n%s", sub, buf.String())
		}
	}

	buf.Reset()
	if err := WritePassages(&buf, nil, OutputText); err != nil {
		t.Fatalf("WritePassages(empty): %v", err)
	}
	if !strings.Contains(buf.String(), "No passages") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestWriteStats(t *testing.T) {
	view := StatsView{
		Stats:      models.Stats{TotalDocuments: 12, Dimension: 384, Documents: 3},
		Strategies: []models.Strategy{models.StrategyTemplate, models.StrategyGenerative},
	}
	var buf bytes.Buffer
	if err := WriteStats(&buf, view, OutputText); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	for _, sub := range []string{"documents:        3", "total_chunks:     12", "384", "template, generative"} {
		if !strings.Contains(buf.String(), sub) {
			t.Errorf("stats output missing %q:\n%s", sub, buf.String())
		}
	}

	buf.Reset()
	if err := WriteStats(&buf, view, OutputJSON); err != nil {
		t.Fatalf("WriteStats(json): %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["total_documents"] != float64(12) {
		t.Errorf("total_documents = %v, want 12", decoded["total_documents"])
	}
}

func TestWriteDocuments(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	docs := []*models.Document{
		{ID: "hr-policy", Title: "HR Policy", Chunks: 4, UpdatedAt: now},
		{ID: "untitled", Chunks: 1, UpdatedAt: now},
	}
	var buf bytes.Buffer
	if err := WriteDocuments(&buf, docs, OutputText); err != nil {
		t.Fatalf("WriteDocuments: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "hr-policy") || !strings.Contains(lines[0], "2024-03-01 09:30") {
		t.Errorf("line 0 = %q", lines[0])
	}

	buf.Reset()
	if err := WriteDocuments(&buf, nil, OutputJSON); err != nil {
		t.Fatalf("WriteDocuments(json): %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty JSON listing = %q, want []", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("日本語のテキスト", 3); got != "日本語..." {
		t.Errorf("Truncate runes = %q", got)
	}
	if got := Truncate("abc", 0); got != "abc" {
		t.Errorf("Truncate(0) = %q", got)
	}
}

func TestTruncateWords(t *testing.T) {
	if got := TruncateWords("one two three", 5); got != "one two three" {
		t.Errorf("TruncateWords short = %q", got)
	}
	if got := TruncateWords("one  two three four", 2); got != "one two..." {
		t.Errorf("TruncateWords = %q", got)
	}
}
