// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bvm

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/btcbridge/vms/bridgevm/txs"
)

func TestServiceDepositLifecycle(t *testing.T) {
	require := require.New(t)

	vm := newTestVM(t)
	s := NewService(vm.VM)
	recipient := ids.GenerateTestShortID()
	txID := hexutil.Bytes(newTxID())

	require.NoError(s.InitiateDeposit(nil, &InitiateDepositArgs{
		Caller:       vm.validator.String(),
		TxID:         txID,
		Amount:       500_000,
		Recipient:    recipient.String(),
		SourceSender: testSender,
	}, &EmptyReply{}))
	require.NoError(s.RecordConfirmations(nil, &RecordConfirmationsArgs{
		Caller:        vm.admin.String(),
		TxID:          txID,
		Confirmations: 6,
	}, &EmptyReply{}))

	confirmReply := ConfirmDepositReply{}
	require.NoError(s.ConfirmDeposit(nil, &ConfirmDepositArgs{
		Caller:    vm.validator.String(),
		TxID:      txID,
		Signature: testSignature,
	}, &confirmReply))
	require.True(confirmReply.Finalized)

	depositReply := DepositReply{}
	require.NoError(s.GetDeposit(nil, &TxIDArgs{TxID: txID}, &depositReply))
	require.Equal(ids.ID(txID), depositReply.TxID)
	require.Equal(json.Uint64(500_000), depositReply.Amount)
	require.Equal(recipient, depositReply.Recipient)
	require.True(depositReply.Finalized)
	require.Equal(hexutil.Bytes(testSender), depositReply.SourceSender)
	require.Equal(base58.CheckEncode(btcutil.Hash160(testSender), 0x00), depositReply.SourceSenderAddress)

	attestationReply := AttestationReply{}
	require.NoError(s.GetAttestation(nil, &AttestationArgs{
		TxID:      txID,
		Validator: vm.validator.String(),
	}, &attestationReply))
	require.Equal(hexutil.Bytes(testSignature), attestationReply.Signature)

	balanceReply := AmountReply{}
	require.NoError(s.GetBridgeBalance(nil, &AddressArgs{Address: recipient.String()}, &balanceReply))
	require.Equal(json.Uint64(500_000), balanceReply.Amount)

	totalReply := AmountReply{}
	require.NoError(s.GetTotalBridgedAmount(nil, nil, &totalReply))
	require.Equal(json.Uint64(500_000), totalReply.Amount)

	withdrawReply := WithdrawalReply{}
	require.NoError(s.Withdraw(nil, &WithdrawArgs{
		Caller:       recipient.String(),
		Amount:       200_000,
		BTCRecipient: testBTCAddr,
	}, &withdrawReply))
	require.Equal(json.Uint64(0), withdrawReply.Index)
	require.Equal(hexutil.Bytes(testBTCAddr), withdrawReply.BTCRecipient)

	withdrawalsReply := GetWithdrawalsReply{}
	require.NoError(s.GetWithdrawals(nil, &GetWithdrawalsArgs{}, &withdrawalsReply))
	require.Len(withdrawalsReply.Withdrawals, 1)
	require.Equal(json.Uint64(1), withdrawalsReply.NextIndex)

	statusReply := BridgeStatusReply{}
	require.NoError(s.GetBridgeStatus(nil, nil, &statusReply))
	require.True(statusReply.Initialized)
	require.Equal(json.Uint64(300_000), statusReply.TotalBridged)
	require.Equal(json.Uint64(1), statusReply.WithdrawalCount)

	auditReply := AuditReport{}
	require.NoError(s.Audit(nil, nil, &auditReply))
	require.True(auditReply.Balanced)
}

func TestServiceAdmin(t *testing.T) {
	require := require.New(t)

	vm := newTestVM(t)
	s := NewService(vm.VM)
	validator := ids.GenerateTestShortID()

	require.NoError(s.AddValidator(nil, &ValidatorArgs{
		Caller:    vm.admin.String(),
		Validator: validator.String(),
	}, &EmptyReply{}))

	isValidatorReply := IsValidatorReply{}
	require.NoError(s.IsValidator(nil, &AddressArgs{Address: validator.String()}, &isValidatorReply))
	require.True(isValidatorReply.Active)

	require.NoError(s.RemoveValidator(nil, &ValidatorArgs{
		Caller:    vm.admin.String(),
		Validator: validator.String(),
	}, &EmptyReply{}))
	require.NoError(s.IsValidator(nil, &AddressArgs{Address: validator.String()}, &isValidatorReply))
	require.False(isValidatorReply.Active)

	require.NoError(s.PauseBridge(nil, &CallerArgs{Caller: vm.admin.String()}, &EmptyReply{}))
	require.NoError(s.ResumeBridge(nil, &CallerArgs{Caller: vm.admin.String()}, &EmptyReply{}))
	require.NoError(s.InitializeBridge(nil, &CallerArgs{Caller: vm.admin.String()}, &EmptyReply{}))

	err := s.EmergencyWithdraw(nil, &EmergencyWithdrawArgs{
		Caller:    vm.admin.String(),
		Amount:    1,
		Recipient: ids.GenerateTestShortID().String(),
	}, &EmptyReply{})
	require.ErrorIs(err, txs.ErrInsufficientBalance)
}

func TestServiceParseErrors(t *testing.T) {
	vm := newTestVM(t)
	s := NewService(vm.VM)

	tests := []struct {
		name        string
		call        func() error
		expectedErr error
	}{
		{
			name: "malformed caller",
			call: func() error {
				return s.PauseBridge(nil, &CallerArgs{Caller: "not an id"}, &EmptyReply{})
			},
			expectedErr: txs.ErrNotAuthorized,
		},
		{
			name: "malformed validator",
			call: func() error {
				return s.AddValidator(nil, &ValidatorArgs{Caller: vm.admin.String()}, &EmptyReply{})
			},
			expectedErr: txs.ErrInvalidValidatorAddress,
		},
		{
			name: "malformed recipient",
			call: func() error {
				return s.InitiateDeposit(nil, &InitiateDepositArgs{
					Caller:    vm.validator.String(),
					Recipient: "???",
				}, &EmptyReply{})
			},
			expectedErr: txs.ErrInvalidRecipientAddress,
		},
		{
			name: "short tx id",
			call: func() error {
				return s.GetDeposit(nil, &TxIDArgs{TxID: []byte{1, 2, 3}}, &DepositReply{})
			},
			expectedErr: txs.ErrInvalidTxHash,
		},
		{
			name: "zero signature",
			call: func() error {
				return s.ConfirmDeposit(nil, &ConfirmDepositArgs{
					Caller:    vm.validator.String(),
					TxID:      newTxID(),
					Signature: make([]byte, txs.SignatureLen),
				}, &ConfirmDepositReply{})
			},
			expectedErr: txs.ErrInvalidSignature,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.ErrorIs(t, test.call(), test.expectedErr)
		})
	}
}

func TestServiceOverHTTP(t *testing.T) {
	require := require.New(t)

	vm := newTestVM(t)
	handlers, err := vm.CreateHandlers(t.Context())
	require.NoError(err)

	body := `{"jsonrpc":"2.0","id":1,"method":"bridge.getBridgeStatus","params":{}}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handlers[""].ServeHTTP(rec, req)

	require.Equal(http.StatusOK, rec.Code)
	require.Contains(rec.Body.String(), `"initialized":true`)
	require.Contains(rec.Body.String(), `"lastProcessedHeight":"2"`)

	body = `{"jsonrpc":"2.0","id":2,"method":"bridge.version","params":{}}`
	req = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	handlers[""].ServeHTTP(rec, req)
	require.Contains(rec.Body.String(), Version.String())
}

func TestServiceRequiresBearerToken(t *testing.T) {
	cfg := newTestConfig()
	cfg.AuthToken = "s3cret"
	vm := newTestVMWithConfig(t, cfg)
	s := NewService(vm.VM)

	newRequest := func(authorization string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if authorization != "" {
			req.Header.Set("Authorization", authorization)
		}
		return req
	}

	tests := []struct {
		name        string
		req         *http.Request
		expectedErr error
	}{
		{
			name:        "no request",
			expectedErr: txs.ErrNotAuthorized,
		},
		{
			name:        "no header",
			req:         newRequest(""),
			expectedErr: txs.ErrNotAuthorized,
		},
		{
			name:        "wrong scheme",
			req:         newRequest("Basic s3cret"),
			expectedErr: txs.ErrNotAuthorized,
		},
		{
			name:        "wrong token",
			req:         newRequest("Bearer guess"),
			expectedErr: txs.ErrNotAuthorized,
		},
		{
			name: "valid token",
			req:  newRequest("Bearer s3cret"),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			validator := ids.GenerateTestShortID()
			err := s.AddValidator(test.req, &ValidatorArgs{
				Caller:    vm.admin.String(),
				Validator: validator.String(),
			}, &EmptyReply{})
			require.ErrorIs(err, test.expectedErr)

			active, err := vm.IsValidator(validator)
			require.NoError(err)
			require.Equal(test.expectedErr == nil, active)
		})
	}

	// Withdrawals move balances and are gated the same way.
	err := s.Withdraw(newRequest(""), &WithdrawArgs{
		Caller:       ids.GenerateTestShortID().String(),
		Amount:       200_000,
		BTCRecipient: testBTCAddr,
	}, &WithdrawalReply{})
	require.ErrorIs(t, err, txs.ErrNotAuthorized)

	// Reads stay open.
	require.NoError(t, s.GetBridgeStatus(nil, nil, &BridgeStatusReply{}))
}

func TestServicePauseCheckedBeforeParsing(t *testing.T) {
	vm := newTestVM(t)
	s := NewService(vm.VM)
	require.NoError(t, vm.PauseBridge(vm.admin))

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "initiate deposit malformed caller",
			call: func() error {
				return s.InitiateDeposit(nil, &InitiateDepositArgs{Caller: "not an id"}, &EmptyReply{})
			},
		},
		{
			name: "initiate deposit malformed recipient",
			call: func() error {
				return s.InitiateDeposit(nil, &InitiateDepositArgs{
					Caller:    vm.validator.String(),
					Recipient: "???",
				}, &EmptyReply{})
			},
		},
		{
			name: "confirm deposit malformed caller",
			call: func() error {
				return s.ConfirmDeposit(nil, &ConfirmDepositArgs{Caller: "not an id"}, &ConfirmDepositReply{})
			},
		},
		{
			name: "withdraw malformed caller",
			call: func() error {
				return s.Withdraw(nil, &WithdrawArgs{Caller: "not an id"}, &WithdrawalReply{})
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.ErrorIs(t, test.call(), txs.ErrBridgePaused)
		})
	}

	// Admin operations are not gated by pause.
	err := s.AddValidator(nil, &ValidatorArgs{Caller: "not an id"}, &EmptyReply{})
	require.ErrorIs(t, err, txs.ErrNotAuthorized)
}
