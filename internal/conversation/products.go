package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/settlebot/internal/metrics"
	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/parser"
	"github.com/mmynk/settlebot/internal/phrases"
	"github.com/mmynk/settlebot/internal/receipt"
	"github.com/mmynk/settlebot/internal/service"
)

// Claim button glyphs.
const (
	GlyphClaimed   = "☑"
	GlyphUnclaimed = "☐"
)

func (m *Machine) addProduct(ctx context.Context, ev Event) error {
	te, ok := ev.(TextEvent)
	if !ok {
		return nil
	}
	user, err := m.currentUser(ctx, te.From())
	if err != nil || user == nil {
		return err
	}

	parsed, err := parser.ParseProduct(te.Text)
	if err != nil {
		m.reply(ctx, te.From(), phrases.ProductFormat)
		return nil
	}

	product, err := m.catalog.AddProduct(ctx, models.Product{
		Name:       parsed.Name,
		Quantity:   parsed.Quantity,
		TotalPrice: parsed.TotalPrice,
		TeamID:     user.TeamID,
		ReceiptID:  uuid.NewString(),
		BuyerID:    user.ID,
	})
	if errors.Is(err, service.ErrInvalidProduct) {
		m.reply(ctx, te.From(), phrases.ProductFormat)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to add product: %w", err)
	}

	return m.publish(ctx, user, "", []models.Product{product})
}

func (m *Machine) addReceipt(ctx context.Context, ev Event) error {
	pe, ok := ev.(PhotoEvent)
	if !ok {
		return nil
	}
	from := pe.From()
	user, err := m.currentUser(ctx, from)
	if err != nil || user == nil {
		return err
	}

	// The transport delivers no image when it could not fetch the photo.
	if len(pe.Image) == 0 {
		metrics.Receipts.WithLabelValues(metrics.ReceiptUnavailable).Inc()
		m.reply(ctx, from, phrases.ReceiptUnavailable)
		return nil
	}

	rec, err := m.recognizer.Recognize(ctx, pe.Image)
	if err != nil {
		slog.Warn("Receipt recognition failed", "user_id", user.ID, "error", err)
		if errors.Is(err, receipt.ErrTransient) {
			metrics.Receipts.WithLabelValues(metrics.ReceiptUnavailable).Inc()
			m.reply(ctx, from, phrases.ReceiptUnavailable)
		} else {
			metrics.Receipts.WithLabelValues(metrics.ReceiptFailed).Inc()
			m.reply(ctx, from, phrases.ReceiptFailed)
		}
		return nil
	}
	metrics.Receipts.WithLabelValues(metrics.ReceiptOK).Inc()

	if len(rec.Items) == 0 {
		m.reply(ctx, from, phrases.ReceiptEmpty)
		return nil
	}

	receiptID := uuid.NewString()
	batch := make([]models.Product, len(rec.Items))
	for i, it := range rec.Items {
		batch[i] = models.Product{
			Name:       it.Name,
			Quantity:   it.Quantity,
			TotalPrice: it.TotalPrice,
			TeamID:     user.TeamID,
			ReceiptID:  receiptID,
			BuyerID:    user.ID,
		}
	}

	added, err := m.catalog.AddProducts(ctx, batch)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidProduct) {
			return fmt.Errorf("failed to add receipt products: %w", err)
		}
		slog.Info("Receipt items skipped", "receipt_id", receiptID, "error", err)
		m.reply(ctx, from, phrases.ReceiptPartial, len(batch)-len(added))
	}
	if len(added) == 0 {
		return nil
	}

	var header string
	if rec.ShopName != "" {
		header = m.phrases.Phrase(phrases.ReceiptShop, rec.ShopName)
	}
	return m.publish(ctx, user, header, added)
}

// publish sends a claim prompt for each new product to every member,
// buyer included. After the buyer's first purchase it also offers them
// to move on to settlement.
func (m *Machine) publish(ctx context.Context, buyer *models.User, header string, products []models.Product) error {
	members, err := m.registry.ListMembers(ctx, buyer.TeamID)
	if err != nil {
		return fmt.Errorf("failed to list members: %w", err)
	}

	m.broadcast(ctx, members, func(ctx context.Context, u models.User) {
		if header != "" {
			m.send(ctx, u.ChatID, header, nil)
		}
		for i := range products {
			p := &products[i]
			m.send(ctx, u.ChatID, m.productText(p, buyer.Name), m.claimKeyboard(p.ID, false))
		}
	})

	bought, err := m.catalog.CountBoughtBy(ctx, buyer.ID, buyer.TeamID)
	if err != nil {
		return fmt.Errorf("failed to count purchases: %w", err)
	}
	if bought == len(products) {
		kb := SingleButton(m.phrases.Phrase(phrases.ButtonSettle), TokenSettle)
		m.send(ctx, buyer.ChatID, m.phrases.Phrase(phrases.SettlePrompt), kb)
	}
	return nil
}

// broadcast runs fn for every member, at most broadcastLimit at a time.
// Messages to one member stay in order because fn sends them sequentially.
func (m *Machine) broadcast(ctx context.Context, members []models.User, fn func(ctx context.Context, u models.User)) {
	var g errgroup.Group
	g.SetLimit(m.broadcastLimit)
	for _, u := range members {
		g.Go(func() error {
			fn(ctx, u)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Machine) toggleClaim(ctx context.Context, ev Event) error {
	be, ok := ev.(ButtonEvent)
	if !ok {
		return nil
	}
	from := be.From()
	user, err := m.currentUser(ctx, from)
	if err != nil || user == nil {
		return err
	}

	productID := strings.TrimPrefix(be.Token, tokenClaimPrefix)
	result, err := m.ledger.ToggleClaim(ctx, user.ID, user.TeamID, productID)
	if errors.Is(err, service.ErrUnknownProduct) {
		m.reply(ctx, from, phrases.UnknownProduct)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to toggle claim: %w", err)
	}

	product, err := m.catalog.Get(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get product: %w", err)
	}
	var buyerName string
	if buyer, err := m.registry.GetUser(ctx, product.BuyerID); err == nil {
		buyerName = buyer.Name
	}

	text := m.productText(product, buyerName)
	kb := m.claimKeyboard(product.ID, result == service.ClaimAdded)
	if err := m.messenger.EditMessage(ctx, from.ChatID, be.MessageID, text, kb); err != nil {
		slog.Warn("Failed to update claim button", "chat_id", from.ChatID, "error", err)
	}
	return nil
}

func (m *Machine) askSettle(ctx context.Context, ev Event) error {
	kb := &Keyboard{Rows: [][]Button{{
		{Text: m.phrases.Phrase(phrases.ButtonYes), Token: TokenSettleYes},
		{Text: m.phrases.Phrase(phrases.ButtonNo), Token: TokenSettleNo},
	}}}
	m.send(ctx, ev.From().ChatID, m.phrases.Phrase(phrases.SettleConfirm), kb)
	return nil
}

func (m *Machine) confirmSettle(ctx context.Context, ev Event) error {
	from := ev.From()
	err := m.registry.SetStage(ctx, from.SenderID, models.StagePayment)
	if errors.Is(err, service.ErrUnknownUser) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enter payment: %w", err)
	}

	m.reply(ctx, from, phrases.ContactRequest)
	return nil
}

func (m *Machine) cancelSettle(ctx context.Context, ev Event) error {
	m.reply(ctx, ev.From(), phrases.SettleCancelled)
	return nil
}

func (m *Machine) productText(p *models.Product, buyerName string) string {
	return m.phrases.Phrase(phrases.ProductLine, buyerName, p.Name, p.Quantity, p.TotalPrice)
}

func (m *Machine) claimKeyboard(productID string, claimed bool) *Keyboard {
	glyph := GlyphUnclaimed
	if claimed {
		glyph = GlyphClaimed
	}
	return SingleButton(m.phrases.Phrase(phrases.ButtonClaim, glyph), ClaimToken(productID))
}
