// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txs

import "errors"

var (
	ErrNilTx = errors.New("tx is nil")

	ErrNotAuthorized           = errors.New("not authorized")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrInvalidBridgeStatus     = errors.New("invalid bridge status")
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrInvalidSignatureFormat  = errors.New("invalid signature format")
	ErrAlreadyProcessed        = errors.New("already processed")
	ErrBridgePaused            = errors.New("bridge paused")
	ErrInvalidValidatorAddress = errors.New("invalid validator address")
	ErrInvalidRecipientAddress = errors.New("invalid recipient address")
	ErrInvalidBtcAddress       = errors.New("invalid btc address")
	ErrInvalidTxHash           = errors.New("invalid tx hash")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNilTx, "nil_tx"},
	{ErrNotAuthorized, "not_authorized"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrInsufficientBalance, "insufficient_balance"},
	{ErrInvalidBridgeStatus, "invalid_bridge_status"},
	{ErrInvalidSignatureFormat, "invalid_signature_format"},
	{ErrInvalidSignature, "invalid_signature"},
	{ErrAlreadyProcessed, "already_processed"},
	{ErrBridgePaused, "bridge_paused"},
	{ErrInvalidValidatorAddress, "invalid_validator_address"},
	{ErrInvalidRecipientAddress, "invalid_recipient_address"},
	{ErrInvalidBtcAddress, "invalid_btc_address"},
	{ErrInvalidTxHash, "invalid_tx_hash"},
}

// ErrorCode returns the stable name of the rejection kind carried by err, or
// "internal" if err is not one of the bridge errors.
func ErrorCode(err error) string {
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
