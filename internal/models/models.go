package models

import "time"

// Stage is the current node in a user's conversation state machine.
type Stage int

const (
	StageMainMenu Stage = iota
	StageChoosingCoin
	StageChoosingCurrency
	StageTypingSearch
	StageCompareSelection
)

func (s Stage) String() string {
	switch s {
	case StageMainMenu:
		return "main_menu"
	case StageChoosingCoin:
		return "choosing_coin"
	case StageChoosingCurrency:
		return "choosing_currency"
	case StageTypingSearch:
		return "typing_search"
	case StageCompareSelection:
		return "compare_selection"
	default:
		return "unknown"
	}
}

// ConversationState tracks where a user is in the menu tree.
// SelectedCoin is only meaningful in ChoosingCurrency and CompareSelection.
type ConversationState struct {
	Stage        Stage  `json:"stage"`
	SelectedCoin string `json:"selected_coin,omitempty"`
	Currency     string `json:"currency"`
}

// Direction is the side of a price threshold an alert watches.
type Direction string

const (
	DirectionAbove Direction = "above"
	DirectionBelow Direction = "below"
)

// Alert is a standing price condition for one user.
type Alert struct {
	UserID    int64     `json:"user_id"`
	CoinID    string    `json:"coin_id"`
	Threshold float64   `json:"threshold"`
	Direction Direction `json:"direction"`
	CreatedAt time.Time `json:"created_at"`
}

// Triggered reports whether the alert condition holds for the given price.
func (a Alert) Triggered(price float64) bool {
	switch a.Direction {
	case DirectionAbove:
		return price >= a.Threshold
	case DirectionBelow:
		return price <= a.Threshold
	default:
		return false
	}
}

// Coin is a market listing entry, used only to render button lists.
type Coin struct {
	ID     string
	Name   string
	Symbol string
}

// CoinDetail is a point-in-time market snapshot for one coin.
type CoinDetail struct {
	ID        string
	Name      string
	Symbol    string
	Price     float64
	Change24h float64
	MarketCap float64
}

// PricePoint is one sample of a historical price series.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}
