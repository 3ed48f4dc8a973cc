package models

// Units describes how a position row's amount is denominated
type Units string

const (
	// UnitsShares means the amount is a share count
	UnitsShares Units = "shares"
	// UnitsUSD means the amount is a fixed dollar value
	UnitsUSD Units = "usd"
)

// PositionRow represents one line item in an asset class holdings table.
// Valid is nil until the ticker has been committed and checked against the
// backend; it re-enters nil only when the ticker is logically reset.
type PositionRow struct {
	ID     string `json:"id"`
	Ticker string `json:"ticker"`
	Amount string `json:"amount"`
	Units  Units  `json:"units"`
	Valid  *bool  `json:"valid,omitempty"`
}

// IsValid reports whether the row's ticker resolved as valid
func (r *PositionRow) IsValid() bool {
	return r.Valid != nil && *r.Valid
}

// Clone returns a copy of the row that shares no state with the original
func (r *PositionRow) Clone() PositionRow {
	row := *r
	if r.Valid != nil {
		v := *r.Valid
		row.Valid = &v
	}
	return row
}
