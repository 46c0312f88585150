package parser

import (
	"encoding/json"
	"fmt"

	"rewe/crawler/internal/domain"
)

// Shape tells which upstream representation a record was decoded from.
type Shape int

const (
	ShapeEmbedded Shape = iota + 1 // search tiles, offers and alternatives
	ShapeFlat                      // product-tiles lookups by id
)

func (s Shape) String() string {
	switch s {
	case ShapeEmbedded:
		return "embedded"
	case ShapeFlat:
		return "flat"
	default:
		return "unknown"
	}
}

// Record is an upstream product in one of the known shapes.
type Record interface {
	Shape() Shape
	toProduct(p *Parser) domain.Product
}

type link struct {
	Self struct {
		Href string `json:"href"`
	} `json:"self"`
}

type embeddedPricing struct {
	CurrentRetailPrice Cents `json:"currentRetailPrice"`
	Discount           struct {
		RegularPrice Cents `json:"regularPrice"`
	} `json:"discount"`
}

type embeddedListing struct {
	ID      string          `json:"id"`
	Pricing embeddedPricing `json:"pricing"`
}

type embeddedArticle struct {
	Embedded struct {
		Listing embeddedListing `json:"listing"`
	} `json:"_embedded"`
}

// EmbeddedProduct is a product with its articles and listing embedded, as
// found in search results, offers and alternatives.
type EmbeddedProduct struct {
	ID          domain.ID `json:"id"`
	NAN         domain.ID `json:"nan"`
	ProductName string    `json:"productName"`
	Brand       struct {
		Name string `json:"name"`
	} `json:"brand"`
	Media struct {
		Images []struct {
			Links link `json:"_links"`
		} `json:"images"`
	} `json:"media"`
	Embedded struct {
		Articles []embeddedArticle `json:"articles"`
	} `json:"_embedded"`
}

func (EmbeddedProduct) Shape() Shape { return ShapeEmbedded }

// Listing returns the listing of the single article, zero when absent.
func (e EmbeddedProduct) Listing() embeddedListing {
	if len(e.Embedded.Articles) == 0 {
		return embeddedListing{}
	}
	return e.Embedded.Articles[0].Embedded.Listing
}

func (e EmbeddedProduct) picture() string {
	if len(e.Media.Images) == 0 {
		return ""
	}
	return e.Media.Images[0].Links.Self.Href
}

func (e EmbeddedProduct) toProduct(p *Parser) domain.Product {
	pricing := e.Listing().Pricing
	return p.newProduct(productFields{
		title:    e.ProductName,
		id:       e.ID.String(),
		alias:    e.NAN.String(),
		brand:    e.Brand.Name,
		picture:  e.picture(),
		price:    pricing.CurrentRetailPrice,
		oldPrice: pricing.Discount.RegularPrice,
	})
}

// ProductInfo is the flat record returned by product-tiles lookups.
type ProductInfo struct {
	ProductID    *domain.ID `json:"productId"`
	ID           domain.ID  `json:"id"`
	NAN          domain.ID  `json:"nan"`
	ProductName  string     `json:"productName"`
	BrandKey     *string    `json:"brandKey"`
	Manufacturer struct {
		Name string `json:"name"`
	} `json:"manufacturer"`
	Pricing struct {
		Price        Cents `json:"price"`
		RegularPrice Cents `json:"regularPrice"`
	} `json:"pricing"`
	MediaInformation []struct {
		MediaURL string `json:"mediaUrl"`
	} `json:"mediaInformation"`
}

func (ProductInfo) Shape() Shape { return ShapeFlat }

func (f ProductInfo) productID() string {
	if f.ProductID != nil {
		return f.ProductID.String()
	}
	return f.ID.String()
}

func (f ProductInfo) brand() string {
	if f.BrandKey != nil {
		return *f.BrandKey
	}
	return f.Manufacturer.Name
}

func (f ProductInfo) picture() string {
	if len(f.MediaInformation) == 0 {
		return ""
	}
	return f.MediaInformation[0].MediaURL
}

func (f ProductInfo) toProduct(p *Parser) domain.Product {
	return p.newProduct(productFields{
		title:    f.ProductName,
		id:       f.productID(),
		alias:    f.NAN.String(),
		brand:    f.brand(),
		picture:  f.picture(),
		price:    f.Pricing.Price,
		oldPrice: f.Pricing.RegularPrice,
	})
}

// DecodeRecord decodes raw into the shape it is in. Records carrying
// _embedded.articles are embedded products, everything else is flat.
func DecodeRecord(raw json.RawMessage) (Record, error) {
	if len(domain.Embedded(raw, "articles")) > 0 {
		return DecodeEmbedded(raw)
	}
	return DecodeFlat(raw)
}

func DecodeEmbedded(raw json.RawMessage) (EmbeddedProduct, error) {
	var e EmbeddedProduct
	if err := json.Unmarshal(raw, &e); err != nil {
		return EmbeddedProduct{}, fmt.Errorf("failed to decode embedded product: %w", err)
	}
	return e, nil
}

func DecodeFlat(raw json.RawMessage) (ProductInfo, error) {
	var f ProductInfo
	if err := json.Unmarshal(raw, &f); err != nil {
		return ProductInfo{}, fmt.Errorf("failed to decode product info: %w", err)
	}
	return f, nil
}
