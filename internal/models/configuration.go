package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Weights are the four factor weights of a ranking configuration.
type Weights struct {
	Price       decimal.Decimal `json:"price"`
	Consistency decimal.Decimal `json:"consistency"`
	Reliability decimal.Decimal `json:"reliability"`
	Fill        decimal.Decimal `json:"fill"`
}

func (w Weights) Sum() decimal.Decimal {
	return w.Price.Add(w.Consistency).Add(w.Reliability).Add(w.Fill)
}

// RankingConfiguration is maintained by administrators; exactly one is active.
type RankingConfiguration struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Version              int       `json:"version"`
	Weights              Weights   `json:"weights"`
	EvaluationWindowDays int       `json:"evaluationWindowDays"`
	MinSubmissions       int       `json:"minSubmissions"`
	Active               bool      `json:"active"`
	UpdatedAt            time.Time `json:"updatedAt"`
}
