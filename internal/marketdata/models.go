package marketdata

import "time"

// EODBar represents a single day's end-of-day price data.
type EODBar struct {
	Date       time.Time `json:"-"`
	DateStr    string    `json:"date"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     int64     `json:"volume"`
	Amount     float64   `json:"amount"`
	ChangeRate float64   `json:"change_rate"`
}

// EODResponse is a slice of EODBar.
type EODResponse []EODBar

// SymbolInfo describes a listed instrument on an exchange.
type SymbolInfo struct {
	Code     string `json:"Code"`
	Name     string `json:"Name"`
	Exchange string `json:"Exchange"`
	Type     string `json:"Type"` // Common Stock, INDEX, ETF
	Currency string `json:"Currency"`
	ISIN     string `json:"Isin"`
}

// SymbolListResponse is a slice of SymbolInfo.
type SymbolListResponse []SymbolInfo

// ExchangeDetails carries exchange metadata including the holiday calendar.
type ExchangeDetails struct {
	Name             string                     `json:"Name"`
	Code             string                     `json:"Code"`
	Country          string                     `json:"Country"`
	Currency         string                     `json:"Currency"`
	Timezone         string                     `json:"Timezone"`
	ExchangeHolidays map[string]ExchangeHoliday `json:"ExchangeHolidays"`
}

// ExchangeHoliday is a single non-trading day entry.
type ExchangeHoliday struct {
	Holiday string `json:"Holiday"`
	Date    string `json:"Date"` // 2006-01-02
	Type    string `json:"Type"`
}

// SentimentRank is one symbol's entry in the daily attention ranking.
type SentimentRank struct {
	Date           time.Time `json:"-"`
	DateStr        string    `json:"date"`
	Symbol         string    `json:"symbol"`
	Rank           int       `json:"rank"`
	NewFansRatio   float64   `json:"new_fans_ratio"`
	LoyalFansRatio float64   `json:"loyal_fans_ratio"`
}

// SentimentResponse is a slice of SentimentRank.
type SentimentResponse []SentimentRank
