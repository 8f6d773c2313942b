// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bvm

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/luxfi/geth/common/hexutil"
	"github.com/luxfi/ids"
	"github.com/luxfi/utils/json"

	"github.com/luxfi/btcbridge/vms/bridgevm/state"
	"github.com/luxfi/btcbridge/vms/bridgevm/txs"
)

const (
	// p2pkhVersion is the mainnet pay-to-pubkey-hash version byte.
	p2pkhVersion = 0x00

	bearerPrefix = "Bearer "
)

var errMissingBearer = fmt.Errorf("%w: missing bearer token", txs.ErrNotAuthorized)

// Service is the JSON-RPC surface of the bridge. Caller identities are passed
// explicitly. When an auth token is configured, every state-mutating call must
// present it as a bearer token.
type Service struct {
	vm *VM
}

func NewService(vm *VM) *Service {
	return &Service{vm: vm}
}

type EmptyReply struct{}

type CallerArgs struct {
	Caller string `json:"caller"`
}

type ValidatorArgs struct {
	Caller    string `json:"caller"`
	Validator string `json:"validator"`
}

type InitiateDepositArgs struct {
	Caller       string        `json:"caller"`
	TxID         hexutil.Bytes `json:"txID"`
	Amount       json.Uint64   `json:"amount"`
	Recipient    string        `json:"recipient"`
	SourceSender hexutil.Bytes `json:"sourceSender"`
}

type ConfirmDepositArgs struct {
	Caller    string        `json:"caller"`
	TxID      hexutil.Bytes `json:"txID"`
	Signature hexutil.Bytes `json:"signature"`
}

type ConfirmDepositReply struct {
	Finalized bool `json:"finalized"`
}

type RecordConfirmationsArgs struct {
	Caller        string        `json:"caller"`
	TxID          hexutil.Bytes `json:"txID"`
	Confirmations json.Uint32   `json:"confirmations"`
}

type WithdrawArgs struct {
	Caller       string        `json:"caller"`
	Amount       json.Uint64   `json:"amount"`
	BTCRecipient hexutil.Bytes `json:"btcRecipient"`
}

type WithdrawalReply struct {
	Index        json.Uint64   `json:"index"`
	Amount       json.Uint64   `json:"amount"`
	Sender       ids.ShortID   `json:"sender"`
	BTCRecipient hexutil.Bytes `json:"btcRecipient"`
	Timestamp    json.Uint64   `json:"timestamp"`
	Height       json.Uint64   `json:"height"`
}

type EmergencyWithdrawArgs struct {
	Caller    string      `json:"caller"`
	Amount    json.Uint64 `json:"amount"`
	Recipient string      `json:"recipient"`
}

type AddressArgs struct {
	Address string `json:"address"`
}

type IsValidatorReply struct {
	Active bool `json:"active"`
}

type TxIDArgs struct {
	TxID hexutil.Bytes `json:"txID"`
}

type DepositReply struct {
	TxID                ids.ID        `json:"txID"`
	Amount              json.Uint64   `json:"amount"`
	Recipient           ids.ShortID   `json:"recipient"`
	Finalized           bool          `json:"finalized"`
	Confirmations       json.Uint32   `json:"confirmations"`
	RegisteredAt        json.Uint64   `json:"registeredAt"`
	SourceSender        hexutil.Bytes `json:"sourceSender"`
	SourceSenderAddress string        `json:"sourceSenderAddress"`
}

type AttestationArgs struct {
	TxID      hexutil.Bytes `json:"txID"`
	Validator string        `json:"validator"`
}

type AttestationReply struct {
	TxID        ids.ID        `json:"txID"`
	Validator   ids.ShortID   `json:"validator"`
	Signature   hexutil.Bytes `json:"signature"`
	SubmittedAt json.Uint64   `json:"submittedAt"`
}

type AmountReply struct {
	Amount json.Uint64 `json:"amount"`
}

type BridgeStatusReply struct {
	Paused              bool        `json:"paused"`
	Initialized         bool        `json:"initialized"`
	TotalBridged        json.Uint64 `json:"totalBridged"`
	EmergencyMinted     json.Uint64 `json:"emergencyMinted"`
	LastProcessedHeight json.Uint64 `json:"lastProcessedHeight"`
	WithdrawalCount     json.Uint64 `json:"withdrawalCount"`
}

type GetWithdrawalsArgs struct {
	StartIndex json.Uint64 `json:"startIndex"`
	Limit      json.Uint32 `json:"limit"`
}

type GetWithdrawalsReply struct {
	Withdrawals []WithdrawalReply `json:"withdrawals"`
	NextIndex   json.Uint64       `json:"nextIndex"`
}

type VersionReply struct {
	Version string `json:"version"`
}

func (s *Service) InitializeBridge(r *http.Request, args *CallerArgs, _ *EmptyReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, err := parseCaller(args.Caller)
	if err != nil {
		return err
	}
	return s.vm.InitializeBridge(caller)
}

func (s *Service) PauseBridge(r *http.Request, args *CallerArgs, _ *EmptyReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, err := parseCaller(args.Caller)
	if err != nil {
		return err
	}
	return s.vm.PauseBridge(caller)
}

func (s *Service) ResumeBridge(r *http.Request, args *CallerArgs, _ *EmptyReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, err := parseCaller(args.Caller)
	if err != nil {
		return err
	}
	return s.vm.ResumeBridge(caller)
}

func (s *Service) AddValidator(r *http.Request, args *ValidatorArgs, _ *EmptyReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, validator, err := parseValidatorArgs(args)
	if err != nil {
		return err
	}
	return s.vm.AddValidator(caller, validator)
}

func (s *Service) RemoveValidator(r *http.Request, args *ValidatorArgs, _ *EmptyReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, validator, err := parseValidatorArgs(args)
	if err != nil {
		return err
	}
	return s.vm.RemoveValidator(caller, validator)
}

func (s *Service) InitiateDeposit(r *http.Request, args *InitiateDepositArgs, _ *EmptyReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, err := parseCaller(args.Caller)
	if err != nil {
		return s.pausedOr(err)
	}
	recipient, err := parseShortID(args.Recipient, txs.ErrInvalidRecipientAddress)
	if err != nil {
		return s.pausedOr(err)
	}
	return s.vm.InitiateDeposit(caller, args.TxID, uint64(args.Amount), recipient, args.SourceSender)
}

func (s *Service) ConfirmDeposit(r *http.Request, args *ConfirmDepositArgs, reply *ConfirmDepositReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, err := parseCaller(args.Caller)
	if err != nil {
		return s.pausedOr(err)
	}
	reply.Finalized, err = s.vm.ConfirmDeposit(caller, args.TxID, args.Signature)
	return err
}

func (s *Service) RecordConfirmations(r *http.Request, args *RecordConfirmationsArgs, _ *EmptyReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, err := parseCaller(args.Caller)
	if err != nil {
		return err
	}
	return s.vm.RecordConfirmations(caller, args.TxID, uint32(args.Confirmations))
}

func (s *Service) Withdraw(r *http.Request, args *WithdrawArgs, reply *WithdrawalReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, err := parseCaller(args.Caller)
	if err != nil {
		return s.pausedOr(err)
	}
	intent, err := s.vm.Withdraw(caller, uint64(args.Amount), args.BTCRecipient)
	if err != nil {
		return err
	}
	*reply = newWithdrawalReply(intent)
	return nil
}

func (s *Service) EmergencyWithdraw(r *http.Request, args *EmergencyWithdrawArgs, _ *EmptyReply) error {
	if err := s.authorize(r); err != nil {
		return err
	}
	caller, err := parseCaller(args.Caller)
	if err != nil {
		return err
	}
	recipient, err := parseShortID(args.Recipient, txs.ErrInvalidRecipientAddress)
	if err != nil {
		return err
	}
	return s.vm.EmergencyWithdraw(caller, uint64(args.Amount), recipient)
}

func (s *Service) IsValidator(_ *http.Request, args *AddressArgs, reply *IsValidatorReply) error {
	validator, err := parseShortID(args.Address, txs.ErrInvalidValidatorAddress)
	if err != nil {
		return err
	}
	reply.Active, err = s.vm.IsValidator(validator)
	return err
}

func (s *Service) GetDeposit(_ *http.Request, args *TxIDArgs, reply *DepositReply) error {
	txID, err := parseTxID(args.TxID)
	if err != nil {
		return err
	}
	deposit, err := s.vm.GetDeposit(txID)
	if err != nil {
		return fmt.Errorf("couldn't get deposit %s: %w", txID, err)
	}
	*reply = DepositReply{
		TxID:                deposit.TxID,
		Amount:              json.Uint64(deposit.Amount),
		Recipient:           deposit.Recipient,
		Finalized:           deposit.Finalized,
		Confirmations:       json.Uint32(deposit.Confirmations),
		RegisteredAt:        json.Uint64(deposit.RegisteredAt),
		SourceSender:        deposit.SourceSender[:],
		SourceSenderAddress: p2pkhAddress(deposit.SourceSender[:]),
	}
	return nil
}

func (s *Service) GetAttestation(_ *http.Request, args *AttestationArgs, reply *AttestationReply) error {
	txID, err := parseTxID(args.TxID)
	if err != nil {
		return err
	}
	validator, err := parseShortID(args.Validator, txs.ErrInvalidValidatorAddress)
	if err != nil {
		return err
	}
	attestation, err := s.vm.GetAttestation(txID, validator)
	if err != nil {
		return fmt.Errorf("couldn't get attestation of %s by %s: %w", txID, validator, err)
	}
	*reply = AttestationReply{
		TxID:        attestation.TxID,
		Validator:   attestation.Validator,
		Signature:   attestation.Signature[:],
		SubmittedAt: json.Uint64(attestation.SubmittedAt),
	}
	return nil
}

func (s *Service) GetBridgeBalance(_ *http.Request, args *AddressArgs, reply *AmountReply) error {
	account, err := parseShortID(args.Address, txs.ErrInvalidRecipientAddress)
	if err != nil {
		return err
	}
	balance, err := s.vm.GetBridgeBalance(account)
	reply.Amount = json.Uint64(balance)
	return err
}

func (s *Service) GetTotalBridgedAmount(_ *http.Request, _ *struct{}, reply *AmountReply) error {
	reply.Amount = json.Uint64(s.vm.GetTotalBridgedAmount())
	return nil
}

func (s *Service) GetBridgeStatus(_ *http.Request, _ *struct{}, reply *BridgeStatusReply) error {
	p := s.vm.GetBridgeStatus()
	*reply = BridgeStatusReply{
		Paused:              p.Paused,
		Initialized:         p.Initialized,
		TotalBridged:        json.Uint64(p.TotalBridged),
		EmergencyMinted:     json.Uint64(p.EmergencyMinted),
		LastProcessedHeight: json.Uint64(p.LastProcessedHeight),
		WithdrawalCount:     json.Uint64(p.NextWithdrawalIndex),
	}
	return nil
}

func (s *Service) GetWithdrawals(_ *http.Request, args *GetWithdrawalsArgs, reply *GetWithdrawalsReply) error {
	intents, err := s.vm.GetWithdrawals(uint64(args.StartIndex), int(args.Limit))
	if err != nil {
		return err
	}
	reply.Withdrawals = make([]WithdrawalReply, len(intents))
	for i := range intents {
		reply.Withdrawals[i] = newWithdrawalReply(&intents[i])
	}
	reply.NextIndex = args.StartIndex + json.Uint64(len(intents))
	return nil
}

func (s *Service) Audit(_ *http.Request, _ *struct{}, reply *AuditReport) error {
	report, err := s.vm.Audit()
	if err != nil {
		return err
	}
	*reply = *report
	return nil
}

func (*Service) Version(_ *http.Request, _ *struct{}, reply *VersionReply) error {
	reply.Version = Version.String()
	return nil
}

func newWithdrawalReply(w *state.WithdrawalIntent) WithdrawalReply {
	return WithdrawalReply{
		Index:        json.Uint64(w.Index),
		Amount:       json.Uint64(w.Amount),
		Sender:       w.Sender,
		BTCRecipient: w.BTCRecipient[:],
		Timestamp:    json.Uint64(w.Timestamp),
		Height:       json.Uint64(w.Height),
	}
}

// authorize checks the bearer token of r against the configured auth token.
func (s *Service) authorize(r *http.Request) error {
	token := s.vm.config.AuthToken
	if token == "" {
		return nil
	}
	if r == nil {
		return errMissingBearer
	}
	presented, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	if !ok {
		return errMissingBearer
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
		return fmt.Errorf("%w: invalid bearer token", txs.ErrNotAuthorized)
	}
	return nil
}

// pausedOr reports err, a malformed argument of a pause-gated operation,
// unless the bridge is paused.
func (s *Service) pausedOr(err error) error {
	if s.vm.GetBridgeStatus().Paused {
		return txs.ErrBridgePaused
	}
	return err
}

func parseCaller(s string) (ids.ShortID, error) {
	return parseShortID(s, txs.ErrNotAuthorized)
}

// parseShortID reports malformed identities as kind, the error the operation
// would return for an invalid identity in that position.
func parseShortID(s string, kind error) (ids.ShortID, error) {
	id, err := ids.ShortFromString(s)
	if err != nil {
		return ids.ShortEmpty, fmt.Errorf("%w: couldn't parse %q: %w", kind, s, err)
	}
	return id, nil
}

func parseValidatorArgs(args *ValidatorArgs) (ids.ShortID, ids.ShortID, error) {
	caller, err := parseCaller(args.Caller)
	if err != nil {
		return ids.ShortEmpty, ids.ShortEmpty, err
	}
	validator, err := parseShortID(args.Validator, txs.ErrInvalidValidatorAddress)
	return caller, validator, err
}

func parseTxID(b hexutil.Bytes) (ids.ID, error) {
	if len(b) != txs.TxIDLen {
		return ids.Empty, fmt.Errorf("%w: expected %d bytes, got %d", txs.ErrInvalidTxHash, txs.TxIDLen, len(b))
	}
	return ids.ID(b), nil
}

// p2pkhAddress renders a compressed public key as the base58check address
// that pays to its hash.
func p2pkhAddress(pubKey []byte) string {
	return base58.CheckEncode(btcutil.Hash160(pubKey), p2pkhVersion)
}
