// Package parser reads the free-text input users type into the chat:
// product lines and payment contacts.
package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidProduct is returned when text does not follow "name qty price".
var ErrInvalidProduct = errors.New("invalid product format")

var (
	quantityPattern = regexp.MustCompile(`^\d+$`)
	pricePattern    = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
)

// Product is a product line typed by the buyer.
type Product struct {
	Name       string
	Quantity   int
	TotalPrice float64
}

// ParseProduct reads "<name words> <quantity> <total price>".
// Tokens are split on any whitespace; the price accepts a comma or a dot
// as decimal separator. Quantity and price must be positive.
func ParseProduct(text string) (Product, error) {
	tokens := strings.Fields(text)
	if len(tokens) < 3 {
		return Product{}, ErrInvalidProduct
	}

	priceToken := tokens[len(tokens)-1]
	qtyToken := tokens[len(tokens)-2]

	if !pricePattern.MatchString(priceToken) {
		return Product{}, ErrInvalidProduct
	}
	price, err := strconv.ParseFloat(strings.Replace(priceToken, ",", ".", 1), 64)
	if err != nil || price <= 0 {
		return Product{}, ErrInvalidProduct
	}

	if !quantityPattern.MatchString(qtyToken) {
		return Product{}, ErrInvalidProduct
	}
	qty, err := strconv.Atoi(qtyToken)
	if err != nil || qty <= 0 {
		return Product{}, ErrInvalidProduct
	}

	return Product{
		Name:       strings.Join(tokens[:len(tokens)-2], " "),
		Quantity:   qty,
		TotalPrice: price,
	}, nil
}
