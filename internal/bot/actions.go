package bot

import "strings"

// ActionKind identifies a parsed inline-button action.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionSelectCoin
	ActionSelectCurrency
	ActionTop
	ActionTrending
	ActionSearch
	ActionMainMenu
	ActionQuit
	ActionCompare
)

// Callback payloads carried in inline keyboard buttons.
const (
	payloadCoinPrefix     = "crypto:"
	payloadCurrencyPrefix = "currency:"
	payloadTop            = "top100"
	payloadTrending       = "trending"
	payloadSearch         = "search"
	payloadMainMenu       = "main_menu"
	payloadQuit           = "quit"
	payloadCompare        = "compare_selection"
)

// ButtonAction is a callback payload parsed once at the transport boundary
// so handlers can switch on it exhaustively instead of re-matching strings.
type ButtonAction struct {
	Kind     ActionKind
	CoinID   string
	Currency string
}

// ParseAction decodes a raw callback payload into a ButtonAction.
// Anything unrecognized comes back as ActionUnknown.
func ParseAction(data string) ButtonAction {
	switch {
	case strings.HasPrefix(data, payloadCoinPrefix):
		id := strings.TrimPrefix(data, payloadCoinPrefix)
		if id == "" {
			return ButtonAction{Kind: ActionUnknown}
		}
		return ButtonAction{Kind: ActionSelectCoin, CoinID: id}
	case strings.HasPrefix(data, payloadCurrencyPrefix):
		code := strings.TrimPrefix(data, payloadCurrencyPrefix)
		if code == "" {
			return ButtonAction{Kind: ActionUnknown}
		}
		return ButtonAction{Kind: ActionSelectCurrency, Currency: code}
	}

	switch data {
	case payloadTop:
		return ButtonAction{Kind: ActionTop}
	case payloadTrending:
		return ButtonAction{Kind: ActionTrending}
	case payloadSearch:
		return ButtonAction{Kind: ActionSearch}
	case payloadMainMenu:
		return ButtonAction{Kind: ActionMainMenu}
	case payloadQuit:
		return ButtonAction{Kind: ActionQuit}
	case payloadCompare:
		return ButtonAction{Kind: ActionCompare}
	default:
		return ButtonAction{Kind: ActionUnknown}
	}
}
