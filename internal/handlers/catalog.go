package handlers

import (
	"fmt"
	"strings"
)

// VATRate is applied to the product price before eco tax, in percent
const VATRate = 20

// Product is a catalog item. Amounts are in cents, tax exclusive.
type Product struct {
	ID          int
	Name        string
	Model       string
	Price       int64
	EcoTax      int64
	Highlight   string
	Description string
}

// VAT returns the tax charged on one unit
func (p Product) VAT() int64 {
	return p.Price * VATRate / 100
}

// UnitPrice is what the shopper pays for one unit
func (p Product) UnitPrice() int64 {
	return p.Price + p.EcoTax + p.VAT()
}

// Catalog is the fixed product list of the demo storefront
type Catalog []Product

// DefaultCatalog mirrors the sample data of a fresh OpenCart install
func DefaultCatalog() Catalog {
	return Catalog{
		{ID: 43, Name: "MacBook", Model: "Product 16", Price: 50000, EcoTax: 200,
			Highlight: "Intel Core 2 Duo processor", Description: "Powered by an Intel Core 2 Duo processor at speeds up to 2.16GHz, the new MacBook is the fastest ever."},
		{ID: 40, Name: "iPhone", Model: "product 11", Price: 10100, EcoTax: 200,
			Highlight: "Revolutionary phone", Description: "Combines three products in one small and lightweight handheld device."},
		{ID: 42, Name: "Apple Cinema 30\"", Model: "Product 15", Price: 10000, EcoTax: 200,
			Highlight: "The 30-inch Apple Cinema HD Display", Description: "Delivers an amazing 2560 x 1600 pixel resolution."},
		{ID: 30, Name: "Canon EOS 5D", Model: "Product 3", Price: 8000, EcoTax: 200,
			Highlight: "Canon's press material", Description: "A full frame digital SLR for the serious photographer."},
		{ID: 44, Name: "MacBook Air", Model: "Product 17", Price: 100000, EcoTax: 200,
			Highlight: "MacBook Air is ultrathin", Description: "Ultraportable, measuring just 0.76 inch at its thickest."},
	}
}

// Find returns the product with id
func (c Catalog) Find(id int) (Product, bool) {
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Search returns products whose name or description contains term, case-insensitively
func (c Catalog) Search(term string) []Product {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	var out []Product
	for _, p := range c {
		if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(strings.ToLower(p.Description), term) {
			out = append(out, p)
		}
	}
	return out
}

// Money renders cents the way the storefront shows prices, e.g. $1,202.00
func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	units := fmt.Sprintf("%d", cents/100)
	var b strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}
