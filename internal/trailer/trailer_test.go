package trailer

import (
	"reflect"
	"testing"
)

func TestExtract_NoMarker(t *testing.T) {
	texts := []string{
		"",
		"plain output without any markers",
		"Checking filesystem... OK\nChecking docker... FAIL\n",
		"MARKER without colon {\"a\":1}",
	}

	for _, text := range texts {
		if _, ok := Extract(text, "MARKER"); ok {
			t.Errorf("expected absent for %q", text)
		}
	}
}

func TestExtract_SimpleObject(t *testing.T) {
	payload, ok := Extract(`MARKER: {"a":1}`, "MARKER")
	if !ok {
		t.Fatal("expected payload")
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		t.Fatalf("expected object, got %T", payload)
	}
	if obj["a"] != float64(1) {
		t.Errorf("expected a=1, got %v", obj["a"])
	}
}

func TestExtract_NonObjectValues(t *testing.T) {
	cases := []struct {
		text string
		want any
	}{
		{`MARKER: [1,2]`, []any{float64(1), float64(2)}},
		{`MARKER: 42`, float64(42)},
		{`MARKER: "text"`, "text"},
		{`MARKER: true`, true},
		{`MARKER: null`, nil},
	}

	for _, tc := range cases {
		payload, ok := Extract(tc.text, "MARKER")
		if !ok {
			t.Errorf("expected payload for %q", tc.text)
			continue
		}
		if !reflect.DeepEqual(payload, tc.want) {
			t.Errorf("for %q expected %v, got %v", tc.text, tc.want, payload)
		}
	}
}

func TestExtract_MarkerMidLine(t *testing.T) {
	text := "some prefix text MARKER: {\"a\":1}\n"

	payload, ok := Extract(text, "MARKER")
	if !ok {
		t.Fatal("expected payload when marker appears after other content")
	}
	if payload.(map[string]any)["a"] != float64(1) {
		t.Errorf("expected a=1, got %v", payload)
	}
}

func TestExtract_EmbeddedInMultilineOutput(t *testing.T) {
	text := "Checking filesystem... OK\n" +
		"Checking docker... OK (Docker version 27.0.1)\n" +
		"\n" +
		"ORDER_RESULT_JSON: {\"success\":true,\"type\":\"runner.selftest\",\"checks\":{\"filesystem_ok\":true}}\n" +
		"PLATFORM_FACTS_JSON: {\"component\":\"runner\",\"checks\":{\"filesystem_ok\":true}}\n"

	result, ok := Extract(text, "ORDER_RESULT_JSON")
	if !ok {
		t.Fatal("expected order result payload")
	}
	if result.(map[string]any)["success"] != true {
		t.Error("expected success=true")
	}

	facts, ok := Extract(text, "PLATFORM_FACTS_JSON")
	if !ok {
		t.Fatal("expected facts payload")
	}
	if facts.(map[string]any)["component"] != "runner" {
		t.Errorf("expected component runner, got %v", facts)
	}
}

func TestExtract_InvalidJSON(t *testing.T) {
	if _, ok := Extract("MARKER: not-json", "MARKER"); ok {
		t.Error("invalid JSON after marker should be treated as absent")
	}
	if _, ok := Extract("MARKER: {\"a\":", "MARKER"); ok {
		t.Error("truncated JSON should be treated as absent")
	}
}

func TestExtract_FirstMatchWins(t *testing.T) {
	text := "MARKER: {\"first\":true}\nMARKER: {\"second\":true}\n"

	payload, ok := Extract(text, "MARKER")
	if !ok {
		t.Fatal("expected payload")
	}
	if payload.(map[string]any)["first"] != true {
		t.Error("first matching line should win")
	}
}

func TestExtract_CaseSensitive(t *testing.T) {
	if _, ok := Extract("marker: {\"a\":1}", "MARKER"); ok {
		t.Error("marker matching must be case-sensitive")
	}
}

func TestExtract_LeadingWhitespaceTrimmed(t *testing.T) {
	payload, ok := Extract("MARKER:    \t {\"a\":1}", "MARKER")
	if !ok {
		t.Fatal("expected payload with whitespace after marker")
	}
	if payload.(map[string]any)["a"] != float64(1) {
		t.Errorf("expected a=1, got %v", payload)
	}
}
