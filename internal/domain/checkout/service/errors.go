package service

import (
	"errors"
	"strings"
)

var (
	ErrExpiredSession        = errors.New("Your checkout session has expired. Please start again.")
	ErrPendingPaymentExists  = errors.New("You have a payment in progress. Complete it or choose another method.")
	ErrNoDraft               = errors.New("No active checkout. Please select a game first.")
	ErrDraftIncomplete       = errors.New("checkout draft incomplete")
	ErrPriceChanged          = errors.New("The price of this product has changed. Please review your order.")
	ErrPaymentArtifactFailed = errors.New("payment artifact failed")
	ErrLoginRequired         = errors.New("You must be logged in to place an order.")
	ErrRemitterRequired      = errors.New("Please enter your full name as per your bank account to proceed.")
	ErrPaymentMethodRequired = errors.New("Please select a payment method.")
	ErrInvalidQuantity       = errors.New("Quantity must be at least 1.")
	ErrRoleNotFound          = errors.New("Selected character was not found.")
	ErrNoPendingPayment      = errors.New("No payment in progress.")
	ErrSessionDataLost       = errors.New("Payment session expired or data lost. Please check your order history.")
)

const (
	// RedirectHome 无可恢复的会话时前端跳转的地址
	RedirectHome = "/"
	// RedirectHistory 只能到购买记录查看的情况
	RedirectHistory = "/account#buy-history"
)

// DraftError 草稿不满足提交条件
type DraftError struct {
	Problems []string
}

func (e *DraftError) Error() string {
	return strings.Join(e.Problems, " ")
}

func (e *DraftError) Is(target error) bool { return target == ErrDraftIncomplete }

// ArtifactError 订单已创建但支付二维码生成失败，订单可在购买记录中找到
type ArtifactError struct {
	OrderID    string
	ReadableID string
	Cause      error
}

func (e *ArtifactError) Error() string {
	return "Your order " + e.ReadableID + " was created but the payment QR could not be generated. Please check your order history."
}

func (e *ArtifactError) Is(target error) bool { return target == ErrPaymentArtifactFailed }

func (e *ArtifactError) Unwrap() error { return e.Cause }

// RedirectError 需要前端跳转的错误
type RedirectError struct {
	Err      error
	Redirect string
}

func (e *RedirectError) Error() string { return e.Err.Error() }

func (e *RedirectError) Unwrap() error { return e.Err }
