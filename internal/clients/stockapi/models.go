package stockapi

import "time"

// Quote is one price observation for a symbol
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change    float64   `json:"change"`
	PctChange float64   `json:"pct_change"`
	Volume    int64     `json:"volume"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}
