// Package receipt turns photos of fiscal receipts into purchased items
// using an external QR recognition service.
package receipt

import (
	"context"
	"errors"
)

var (
	// ErrRecognitionFailed means the service answered but could not read the receipt.
	ErrRecognitionFailed = errors.New("receipt not recognized")
	// ErrTransient means the service is unavailable or answered garbage; retrying later may help.
	ErrTransient = errors.New("receipt service unavailable")
)

// Item is one purchased line of a receipt.
type Item struct {
	Name       string
	Quantity   int
	TotalPrice float64
}

// Receipt is a recognized receipt.
type Receipt struct {
	ShopName string
	Items    []Item
}

// Recognizer extracts purchased items from a receipt image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (*Receipt, error)
}
