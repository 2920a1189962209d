package core

import "errors"

var (
	ErrInvalidAddress     = errors.New("invalid ethereum address")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrChallengeNotFound  = errors.New("challenge expired or not found")
	ErrCredentialNotFound = errors.New("credential not found")
	ErrAccountNotFound    = errors.New("account not found")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrQuotaExhausted     = errors.New("inbox quota exhausted")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentExpired     = errors.New("payment expired")
	ErrNotFound           = errors.New("not found")
)
