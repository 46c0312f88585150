package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const StoreName = "rewe.de"

// Product is the canonical record every upstream shape is normalized into.
type Product struct {
	Store     string          `json:"store"`
	Title     string          `json:"product"`
	Link      string          `json:"link"`
	ProductID string          `json:"product_id"`
	Price     decimal.Decimal `json:"price"`
	OldPrice  decimal.Decimal `json:"old_price"`
	Saved     decimal.Decimal `json:"saved"`
	Brand     string          `json:"brand"`
	Picture   string          `json:"picture"`
}

// Branch is a physical market offering pickup for a zip code.
type Branch struct {
	ID            ID     `json:"wwIdent"`
	Name          string `json:"name"`
	ZipCode       ID     `json:"zipCode"`
	City          string `json:"city"`
	PickupVariant string `json:"pickupVariant"`
}

// ID is an identifier the API sends either as a JSON string or as a number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	if string(data) == "null" {
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}
