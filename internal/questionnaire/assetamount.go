package questionnaire

import "sync"

// AssetAmount holds the single USD total for a simple asset class. The
// value is kept as entered; the authoritative positive-amount check runs
// at submission time, not on every keystroke.
type AssetAmount struct {
	mu       sync.Mutex
	amount   string
	onChange func(amount string)
}

// NewAssetAmount creates an empty amount. onChange may be nil.
func NewAssetAmount(onChange func(amount string)) *AssetAmount {
	return &AssetAmount{onChange: onChange}
}

// SetAmount stores a numeric-as-text USD value
func (a *AssetAmount) SetAmount(text string) {
	a.mu.Lock()
	a.amount = text
	a.mu.Unlock()

	if a.onChange != nil {
		a.onChange(text)
	}
}

// Amount returns the value as entered
func (a *AssetAmount) Amount() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.amount
}
