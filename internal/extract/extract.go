// internal/extract/extract.go
package extract

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"food-analyzer/internal/models"
)

const (
	StrategyDirect = "direct"
	StrategyFenced = "fenced"
	StrategyBraces = "braces"
	StrategyText   = "text"
)

var (
	ErrNotFound    = errors.New("no candidate span")
	ErrInvalidJSON = errors.New("candidate is not valid JSON")
)

const (
	fenceOpen  = "```json"
	fenceClose = "```"
)

// Strategy turns a model reply into a JSON value or reports why it could not.
type Strategy struct {
	Name  string
	Parse func(reply string) (json.RawMessage, error)
}

// Strategies are tried in order and the first success wins. The brace tier
// only runs when the reply carries no ```json fence.
var Strategies = []Strategy{
	{Name: StrategyDirect, Parse: Direct},
	{Name: StrategyFenced, Parse: Fenced},
	{Name: StrategyBraces, Parse: Braces},
}

// Extract never fails: when every strategy rejects the reply the result is
// {"text": reply}.
func Extract(reply string) models.Extraction {
	for _, s := range Strategies {
		data, err := s.Parse(reply)
		if err == nil {
			return models.Extraction{Data: data, Raw: reply, Strategy: s.Name}
		}
		// a fence that does not hold valid JSON stops the chain
		if s.Name == StrategyFenced && !errors.Is(err, ErrNotFound) {
			break
		}
	}
	return models.Extraction{Data: Text(reply), Raw: reply, Strategy: StrategyText}
}

// Direct accepts the whole reply when it is a single JSON value.
func Direct(reply string) (json.RawMessage, error) {
	return validate(strings.TrimSpace(reply))
}

// Fenced accepts the interior of the first ```json ... ``` block.
func Fenced(reply string) (json.RawMessage, error) {
	start := strings.Index(reply, fenceOpen)
	if start == -1 {
		return nil, ErrNotFound
	}
	body := reply[start+len(fenceOpen):]
	end := strings.Index(body, fenceClose)
	if end == -1 {
		return nil, ErrNotFound
	}
	return validate(strings.TrimSpace(body[:end]))
}

// Braces accepts the span from the first '{' to the last '}'. The span is
// greedy, so two unrelated objects in one reply produce an invalid candidate.
func Braces(reply string) (json.RawMessage, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end <= start {
		return nil, ErrNotFound
	}
	return validate(reply[start : end+1])
}

// Text wraps a reply that held no usable JSON.
func Text(reply string) json.RawMessage {
	data, _ := json.Marshal(map[string]string{"text": reply})
	return data
}

func validate(candidate string) (json.RawMessage, error) {
	if candidate == "" || !gjson.Valid(candidate) {
		return nil, ErrInvalidJSON
	}
	return json.RawMessage(candidate), nil
}
