package test

import (
	"context"
	"sync"
	"time"

	"github.com/tecelana/fichas/internal/adapter/mailer"
	"github.com/tecelana/fichas/internal/adapter/mercadopago"
	"github.com/tecelana/fichas/internal/domain/model"
)

// PaymentClientStub simulates the payment provider.
type PaymentClientStub struct {
	CreatePreferenceFn func(context.Context, mercadopago.PreferenceRequest) (*model.Preference, error)
	GetPaymentFn       func(context.Context, string) (*model.Payment, error)
}

func (s PaymentClientStub) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*model.Preference, error) {
	if s.CreatePreferenceFn != nil {
		return s.CreatePreferenceFn(ctx, req)
	}
	return &model.Preference{ID: "pref-stub", RedirectURL: "https://pay.example.com/pref-stub"}, nil
}

func (s PaymentClientStub) GetPayment(ctx context.Context, paymentID string) (*model.Payment, error) {
	if s.GetPaymentFn != nil {
		return s.GetPaymentFn(ctx, paymentID)
	}
	return &model.Payment{ID: paymentID, Status: model.PaymentStatusApproved}, nil
}

// MailerStub records sent messages.
type MailerStub struct {
	SendFn func(context.Context, mailer.Message) error

	mu   sync.Mutex
	Sent []mailer.Message
}

func (s *MailerStub) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	s.Sent = append(s.Sent, msg)
	s.mu.Unlock()
	if s.SendFn != nil {
		return s.SendFn(ctx, msg)
	}
	return nil
}

// SignerStub returns deterministic signed URLs.
type SignerStub struct {
	SignFn func(context.Context, string, time.Duration) (string, error)
}

func (s SignerStub) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.SignFn != nil {
		return s.SignFn(ctx, key, ttl)
	}
	return "https://storage.example.com/signed/" + key, nil
}
