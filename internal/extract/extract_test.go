package extract

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func decode(t *testing.T, data []byte) any {
	t.Helper()
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return v
}

func TestExtract_ValidJSONRoundTrips(t *testing.T) {
	replies := []string{
		`{"meal":[{"dish":"Pasta","calories":"420"}]}`,
		`  {"calories": 300, "ingredients": ["rice", "beans"]}` + "\n",
		`[1, 2, 3]`,
		`42`,
		`"just a string"`,
		`{"nested":{"deep":{"value":1.25e3}}}`,
	}
	for _, reply := range replies {
		got := Extract(reply)
		if got.Strategy != StrategyDirect {
			t.Errorf("Extract(%q).Strategy = %q, want %q", reply, got.Strategy, StrategyDirect)
		}
		if !reflect.DeepEqual(decode(t, got.Data), decode(t, []byte(reply))) {
			t.Errorf("Extract(%q).Data = %s, want parse of reply", reply, got.Data)
		}
		if got.Raw != reply {
			t.Errorf("Extract(%q).Raw = %q, want original reply", reply, got.Raw)
		}
	}
}

func TestExtract_FencedBlockIgnoresProse(t *testing.T) {
	reply := "Here you go:\n```json\n{\"calories\":300}\n```"

	got := Extract(reply)

	if got.Strategy != StrategyFenced {
		t.Fatalf("Strategy = %q, want %q", got.Strategy, StrategyFenced)
	}
	want := map[string]any{"calories": float64(300)}
	if !reflect.DeepEqual(decode(t, got.Data), want) {
		t.Errorf("Data = %s, want %v", got.Data, want)
	}
}

func TestExtract_FencedBlockWithTrailingProse(t *testing.T) {
	reply := "Sure!\n```json\n{\"meal\":[{\"dish\":\"Salad\"}]}\n```\nLet me know if you need {anything} else."

	got := Extract(reply)

	if got.Strategy != StrategyFenced {
		t.Fatalf("Strategy = %q, want %q", got.Strategy, StrategyFenced)
	}
	want := map[string]any{"meal": []any{map[string]any{"dish": "Salad"}}}
	if !reflect.DeepEqual(decode(t, got.Data), want) {
		t.Errorf("Data = %s, want %v", got.Data, want)
	}
}

func TestExtract_LooseBraces(t *testing.T) {
	reply := `The meal looks like this: {"dish": "Burger", "calories": "650"} Enjoy!`

	got := Extract(reply)

	if got.Strategy != StrategyBraces {
		t.Fatalf("Strategy = %q, want %q", got.Strategy, StrategyBraces)
	}
	want := map[string]any{"dish": "Burger", "calories": "650"}
	if !reflect.DeepEqual(decode(t, got.Data), want) {
		t.Errorf("Data = %s, want %v", got.Data, want)
	}
}

func TestExtract_FallsBackToText(t *testing.T) {
	replies := []string{
		"",
		"I can't tell what is on this plate.",
		// greedy span covers both fragments and is not valid JSON
		`first {"a": 1} and then {"b": 2}`,
		// a fence was found, so the brace tier is skipped
		"```json\nnot json at all\n```\n{\"calories\": 100}",
		"} backwards {",
	}
	for _, reply := range replies {
		got := Extract(reply)
		if got.Strategy != StrategyText {
			t.Errorf("Extract(%q).Strategy = %q, want %q", reply, got.Strategy, StrategyText)
		}
		want := map[string]any{"text": reply}
		if !reflect.DeepEqual(decode(t, got.Data), want) {
			t.Errorf("Extract(%q).Data = %s, want %v", reply, got.Data, want)
		}
	}
}

func TestExtract_Idempotent(t *testing.T) {
	replies := []string{
		`{"a":1}`,
		"prose ```json\n{\"b\":2}\n``` prose",
		`x {"c":3} y`,
		"<b>nothing</b> & more",
	}
	for _, reply := range replies {
		first := Extract(reply)
		second := Extract(reply)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Extract(%q) not idempotent: %+v vs %+v", reply, first, second)
		}
	}
}

func TestStrategies_Individually(t *testing.T) {
	tests := []struct {
		name    string
		parse   func(string) (json.RawMessage, error)
		reply   string
		want    string
		wantErr error
	}{
		{"direct ok", Direct, ` {"a":1} `, `{"a":1}`, nil},
		{"direct prose", Direct, `hello {"a":1}`, "", ErrInvalidJSON},
		{"fenced ok", Fenced, "```json\n[1]\n```", "[1]", nil},
		{"fenced missing", Fenced, `{"a":1}`, "", ErrNotFound},
		{"fenced unterminated", Fenced, "```json\n{\"a\":1}", "", ErrNotFound},
		{"fenced empty", Fenced, "```json\n```", "", ErrInvalidJSON},
		{"braces ok", Braces, `see {"a":{"b":2}} here`, `{"a":{"b":2}}`, nil},
		{"braces missing", Braces, "no braces", "", ErrNotFound},
		{"braces reversed", Braces, "} {", "", ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse(tt.reply)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
