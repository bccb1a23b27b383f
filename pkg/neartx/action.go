// Copyright (C) 2025, NEAR Connect contributors. All rights reserved.
// Licensed under the Apache License, Version 2.0

package neartx

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/frol/near-connect-go/pkg/borsh"
)

// Action is one of the eight NEAR transaction action variants. Each variant
// encodes as its fixed tag byte followed by the variant's fields.
type Action interface {
	tag() uint8
	encodeFields(w *borsh.Writer) error
}

// Action variant tags, in protocol order.
const (
	tagCreateAccount  uint8 = 0
	tagDeployContract uint8 = 1
	tagFunctionCall   uint8 = 2
	tagTransfer       uint8 = 3
	tagStake          uint8 = 4
	tagAddKey         uint8 = 5
	tagDeleteKey      uint8 = 6
	tagDeleteAccount  uint8 = 7
)

func encodeAction(w *borsh.Writer, a Action) error {
	w.U8(a.tag())
	if err := a.encodeFields(w); err != nil {
		return fmt.Errorf("neartx: encoding action %T: %w", a, err)
	}
	return nil
}

// CreateAccount creates the receiver account. No fields.
type CreateAccount struct{}

func (CreateAccount) tag() uint8 { return tagCreateAccount }

func (CreateAccount) encodeFields(*borsh.Writer) error { return nil }

// DeployContract deploys WASM code to the receiver account.
type DeployContract struct {
	Code []byte
}

func (DeployContract) tag() uint8 { return tagDeployContract }

func (a DeployContract) encodeFields(w *borsh.Writer) error {
	w.Prefixed(a.Code)
	return nil
}

// FunctionCall invokes a contract method. Deposit is in yoctoNEAR.
type FunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    *big.Int
}

func (FunctionCall) tag() uint8 { return tagFunctionCall }

func (a FunctionCall) encodeFields(w *borsh.Writer) error {
	w.String(a.MethodName)
	w.Prefixed(a.Args)
	w.U64(a.Gas)
	return w.U128(deposit(a.Deposit))
}

// ArgsBase64 decodes standard-base64 text into function-call argument
// bytes.
func ArgsBase64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// ArgsJSON marshals a value to JSON for use as function-call arguments.
func ArgsJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Transfer moves Deposit yoctoNEAR to the receiver.
type Transfer struct {
	Deposit *big.Int
}

func (Transfer) tag() uint8 { return tagTransfer }

func (a Transfer) encodeFields(w *borsh.Writer) error {
	return w.U128(deposit(a.Deposit))
}

// Stake stakes the given amount with a validator key.
type Stake struct {
	Stake     *big.Int
	PublicKey PublicKey
}

func (Stake) tag() uint8 { return tagStake }

func (a Stake) encodeFields(w *borsh.Writer) error {
	if err := w.U128(deposit(a.Stake)); err != nil {
		return err
	}
	a.PublicKey.encodeTo(w)
	return nil
}

// AddKey attaches an access key to the signer account.
type AddKey struct {
	PublicKey PublicKey
	AccessKey AccessKey
}

func (AddKey) tag() uint8 { return tagAddKey }

func (a AddKey) encodeFields(w *borsh.Writer) error {
	a.PublicKey.encodeTo(w)
	return a.AccessKey.encodeTo(w)
}

// DeleteKey removes an access key from the signer account.
type DeleteKey struct {
	PublicKey PublicKey
}

func (DeleteKey) tag() uint8 { return tagDeleteKey }

func (a DeleteKey) encodeFields(w *borsh.Writer) error {
	a.PublicKey.encodeTo(w)
	return nil
}

// DeleteAccount deletes the receiver account, sending its balance to the
// beneficiary.
type DeleteAccount struct {
	BeneficiaryID string
}

func (DeleteAccount) tag() uint8 { return tagDeleteAccount }

func (a DeleteAccount) encodeFields(w *borsh.Writer) error {
	w.String(a.BeneficiaryID)
	return nil
}

// AccessKey is the nonce + permission pair stored with an added key.
type AccessKey struct {
	Nonce      uint64
	Permission Permission
}

func (k AccessKey) encodeTo(w *borsh.Writer) error {
	w.U64(k.Nonce)
	return k.Permission.encodeTo(w)
}

// Permission is either FullAccess or a FunctionCallPermission.
type Permission interface {
	encodeTo(w *borsh.Writer) error
}

// FunctionCallPermission restricts a key to calling the named methods on
// one receiver, spending at most Allowance (nil means unlimited).
type FunctionCallPermission struct {
	Allowance   *big.Int
	ReceiverID  string
	MethodNames []string
}

func (p FunctionCallPermission) encodeTo(w *borsh.Writer) error {
	w.U8(0)
	w.Bool(p.Allowance != nil)
	if p.Allowance != nil {
		if err := w.U128(p.Allowance); err != nil {
			return err
		}
	}
	w.String(p.ReceiverID)
	w.U32(uint32(len(p.MethodNames)))
	for _, m := range p.MethodNames {
		w.String(m)
	}
	return nil
}

// FullAccess grants unrestricted use of the key.
type FullAccess struct{}

func (FullAccess) encodeTo(w *borsh.Writer) error {
	w.U8(1)
	return nil
}

// deposit treats a nil amount as zero so callers can omit it.
func deposit(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// ParseAmount parses a decimal yoctoNEAR amount into a big integer.
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("neartx: invalid amount %q", s)
	}
	return v, nil
}
