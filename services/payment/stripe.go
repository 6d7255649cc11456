package payment

import (
	"context"
	"fmt"
	"math"

	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// StripeGateway implements CheckoutGateway on Stripe hosted checkout.
type StripeGateway struct{}

// NewStripeGateway sets the global Stripe API key and returns the gateway.
func NewStripeGateway(apiKey string) *StripeGateway {
	stripe.Key = apiKey
	return &StripeGateway{}
}

// CreateSession opens a new hosted checkout session.
func (g *StripeGateway) CreateSession(ctx context.Context, p CreateSessionParams) (*CheckoutSession, error) {
	priceData := &stripe.CheckoutSessionLineItemPriceDataParams{
		Currency:   stripe.String(p.Currency),
		UnitAmount: stripe.Int64(int64(math.Round(p.Amount * 100))),
		ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(p.ProductName),
		},
	}
	if p.Description != "" {
		priceData.ProductData.Description = stripe.String(p.Description)
	}

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{PriceData: priceData, Quantity: stripe.Int64(1)},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	if !p.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(p.ExpiresAt.Unix())
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := session.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create session failed: %w", err)
	}
	return fromStripeSession(s), nil
}

// RetrieveSession fetches the authoritative session state from Stripe.
func (g *StripeGateway) RetrieveSession(ctx context.Context, id string) (*CheckoutSession, error) {
	s, err := session.Get(id, &stripe.CheckoutSessionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve session failed: %w", err)
	}
	return fromStripeSession(s), nil
}

// ExpireSession invalidates an open session so it can no longer be paid.
func (g *StripeGateway) ExpireSession(ctx context.Context, id string) error {
	_, err := session.Expire(id, &stripe.CheckoutSessionExpireParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return fmt.Errorf("stripe expire session failed: %w", err)
	}
	return nil
}

func fromStripeSession(s *stripe.CheckoutSession) *CheckoutSession {
	cs := &CheckoutSession{
		ID:       s.ID,
		URL:      s.URL,
		Status:   SessionStatus(s.Status),
		Paid:     s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: s.Metadata,
	}
	if s.PaymentIntent != nil {
		cs.Ref = s.PaymentIntent.ID
	}
	return cs
}
