package commands

import (
	"strings"
	"testing"
	"time"

	"github.com/voxlate/voxlate/pkg/history"
)

func TestHistoryEmpty(t *testing.T) {
	setupTestEnv(t)

	stdout, _, code := runCmd(t, "history")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, "No translations yet") {
		t.Fatalf("expected empty message, got: %s", stdout)
	}
}

func TestHistoryListFilterClear(t *testing.T) {
	configPath := setupTestEnv(t)
	seedHistory(t, configPath,
		history.Record{
			OriginalText:   "hello",
			TranslatedText: "你好",
			SourceLanguage: "english",
			TargetLanguage: "chinese",
			Timestamp:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		history.Record{
			OriginalText:   "谢谢",
			TranslatedText: "thank you",
			SourceLanguage: "chinese",
			TargetLanguage: "english",
			Timestamp:      time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
		},
	)

	stdout, _, code := runCmd(t, "history")
	if code != 0 {
		t.Fatalf("history failed: exit %d", code)
	}
	if !strings.Contains(stdout, "你好") || !strings.Contains(stdout, "thank you") {
		t.Fatalf("missing records: %s", stdout)
	}
	// Insertion order, oldest first.
	if strings.Index(stdout, "hello") > strings.Index(stdout, "谢谢") {
		t.Fatalf("records out of order: %s", stdout)
	}

	stdout, _, code = runCmd(t, "history", "--limit", "1")
	if code != 0 {
		t.Fatalf("history --limit failed: exit %d", code)
	}
	if strings.Contains(stdout, "hello") || !strings.Contains(stdout, "谢谢") {
		t.Fatalf("limit should keep the newest record: %s", stdout)
	}

	stdout, _, code = runCmd(t, "history", "--filter", `.[] | select(.sourceLanguage == "english") | .translatedText`)
	if code != 0 {
		t.Fatalf("history --filter failed: exit %d", code)
	}
	if strings.TrimSpace(stdout) != `"你好"` {
		t.Fatalf("filter output=%q", stdout)
	}

	_, stderr, code := runCmd(t, "history", "--filter", "((")
	if code == 0 {
		t.Fatal("expected non-zero exit for a bad expression")
	}
	if !strings.Contains(stderr, "invalid jq expression") {
		t.Fatalf("unexpected error: %s", stderr)
	}

	_, _, code = runCmd(t, "history", "clear")
	if code != 0 {
		t.Fatalf("history clear failed: exit %d", code)
	}
	stdout, _, _ = runCmd(t, "history")
	if !strings.Contains(stdout, "No translations yet") {
		t.Fatalf("expected empty history after clear, got: %s", stdout)
	}
}

func TestHistoryJSON(t *testing.T) {
	configPath := setupTestEnv(t)
	seedHistory(t, configPath, history.Record{
		OriginalText:   "good morning",
		TranslatedText: "早上好",
		SourceLanguage: "english",
		TargetLanguage: "chinese",
	})

	stdout, _, code := runCmd(t, "history", "--json")
	if code != 0 {
		t.Fatalf("exit %d", code)
	}
	if !strings.Contains(stdout, `"originalText": "good morning"`) {
		t.Fatalf("expected JSON fields, got: %s", stdout)
	}
}

func TestApplyFilter(t *testing.T) {
	records := []history.Record{
		{OriginalText: "one", TranslatedText: "一"},
		{OriginalText: "two", TranslatedText: "二"},
	}

	out, err := applyFilter(records, ".[] | .originalText")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0] != "one" || out[1] != "two" {
		t.Fatalf("out=%v", out)
	}

	out, err = applyFilter(records, "length")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != 2 {
		t.Fatalf("out=%v", out)
	}

	if _, err := applyFilter(records, "(("); err == nil {
		t.Fatal("expected parse error")
	}
}
