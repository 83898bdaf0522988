package strategy

import (
	"context"

	"gamevault/internal/pkg/gateway"

	"github.com/shopspring/decimal"
)

// QRIssuer PayNow 二维码接口
type QRIssuer interface {
	CreatePayNowQR(ctx context.Context, orderID string, amount decimal.Decimal) (*gateway.PayNowQR, error)
}

type PayNowStrategy struct {
	issuer QRIssuer
}

func NewPayNowStrategy(issuer QRIssuer) *PayNowStrategy {
	return &PayNowStrategy{issuer: issuer}
}

// Issue 申请动态 PayNow 二维码
func (s *PayNowStrategy) Issue(ctx context.Context, orderID string, amount decimal.Decimal) (*Artifact, error) {
	qr, err := s.issuer.CreatePayNowQR(ctx, orderID, amount)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		QRImageData: qr.QRCodeData,
		ReferenceID: qr.ReferenceID,
		ExpiresAt:   qr.ExpiresAt(),
	}, nil
}
