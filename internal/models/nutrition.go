// internal/models/nutrition.go
package models

import "encoding/json"

// NutritionResult is the shape the vision model is asked to produce. Nothing
// enforces it: replies are passed through as raw JSON, this type only backs
// the canned simulation result.
type NutritionResult struct {
	Meal []Dish `json:"meal"`
}

type Dish struct {
	Dish           string         `json:"dish"`
	Calories       string         `json:"calories"`
	Macronutrients Macronutrients `json:"macronutrients"`
	Ingredients    []string       `json:"ingredients"`
}

type Macronutrients struct {
	Protein       string `json:"protein"`
	Carbohydrates string `json:"carbohydrates"`
	Fat           string `json:"fat"`
}

type AnalysisRequest struct {
	Image    string `json:"image"`
	Simulate bool   `json:"simulate,omitempty"`
}

// Extraction is the structured guess for one upstream reply together with the
// reply itself.
type Extraction struct {
	Data     json.RawMessage `json:"data"`
	Raw      string          `json:"raw"`
	Strategy string          `json:"strategy"`
}

// Envelope is the response body shared by every transport.
type Envelope struct {
	Success     bool   `json:"success"`
	Data        any    `json:"data,omitempty"`
	RawAnalysis string `json:"rawAnalysis,omitempty"`
	Simulation  bool   `json:"simulation,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RateLimitBody is returned with 429 responses.
type RateLimitBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

type StatusBody struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}
