package sealevel

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

const (
	TokenMintLen    = 82
	TokenAccountLen = 165
)

const (
	TokenAccountStateUninitialized = 0
	TokenAccountStateInitialized   = 1
	TokenAccountStateFrozen        = 2
)

type TokenMint struct {
	MintAuthority   *solana.PublicKey
	Supply          uint64
	Decimals        byte
	IsInitialized   bool
	FreezeAuthority *solana.PublicKey
}

type TokenAccount struct {
	Mint            solana.PublicKey
	Owner           solana.PublicKey
	Amount          uint64
	Delegate        *solana.PublicKey
	State           byte
	IsNative        *uint64
	DelegatedAmount uint64
	CloseAuthority  *solana.PublicKey
}

func readCOptionPubkey(decoder *bin.Decoder) (*solana.PublicKey, error) {
	tag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return nil, err
	}
	pkBytes, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, err
	}

	switch tag {
	case 0:
		return nil, nil
	case 1:
		pk := solana.PublicKeyFromBytes(pkBytes)
		return &pk, nil
	default:
		return nil, fmt.Errorf("invalid COption tag %d", tag)
	}
}

func writeCOptionPubkey(encoder *bin.Encoder, pk *solana.PublicKey) error {
	if pk == nil {
		_ = encoder.WriteUint32(0, bin.LE)
		return encoder.WriteBytes(make([]byte, solana.PublicKeyLength), false)
	}
	_ = encoder.WriteUint32(1, bin.LE)
	return encoder.WriteBytes(pk[:], false)
}

func (mint *TokenMint) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error

	mint.MintAuthority, err = readCOptionPubkey(decoder)
	if err != nil {
		return fmt.Errorf("failed to read MintAuthority when decoding TokenMint: %w", err)
	}

	mint.Supply, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Supply when decoding TokenMint: %w", err)
	}

	mint.Decimals, err = decoder.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read Decimals when decoding TokenMint: %w", err)
	}

	mint.IsInitialized, err = decoder.ReadBool()
	if err != nil {
		return fmt.Errorf("failed to read IsInitialized when decoding TokenMint: %w", err)
	}

	mint.FreezeAuthority, err = readCOptionPubkey(decoder)
	if err != nil {
		return fmt.Errorf("failed to read FreezeAuthority when decoding TokenMint: %w", err)
	}

	return nil
}

func (mint *TokenMint) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = writeCOptionPubkey(encoder, mint.MintAuthority)
	_ = encoder.WriteUint64(mint.Supply, bin.LE)
	_ = encoder.WriteByte(mint.Decimals)
	_ = encoder.WriteBool(mint.IsInitialized)
	return writeCOptionPubkey(encoder, mint.FreezeAuthority)
}

func (mint *TokenMint) Marshal() []byte {
	buf := new(bytes.Buffer)
	err := mint.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		panic("shouldn't fail")
	}
	return buf.Bytes()
}

func UnmarshalTokenMint(data []byte) (*TokenMint, error) {
	if len(data) != TokenMintLen {
		return nil, InstrErrInvalidAccountData
	}
	mint := new(TokenMint)
	err := mint.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return mint, nil
}

func (acct *TokenAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	var err error

	err = decoder.Decode(&acct.Mint)
	if err != nil {
		return fmt.Errorf("failed to read Mint when decoding TokenAccount: %w", err)
	}

	err = decoder.Decode(&acct.Owner)
	if err != nil {
		return fmt.Errorf("failed to read Owner when decoding TokenAccount: %w", err)
	}

	acct.Amount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Amount when decoding TokenAccount: %w", err)
	}

	acct.Delegate, err = readCOptionPubkey(decoder)
	if err != nil {
		return fmt.Errorf("failed to read Delegate when decoding TokenAccount: %w", err)
	}

	acct.State, err = decoder.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read State when decoding TokenAccount: %w", err)
	}
	if acct.State > TokenAccountStateFrozen {
		return fmt.Errorf("invalid token account state %d", acct.State)
	}

	isNativeTag, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read IsNative when decoding TokenAccount: %w", err)
	}
	isNative, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read IsNative when decoding TokenAccount: %w", err)
	}
	if isNativeTag == 1 {
		acct.IsNative = &isNative
	}

	acct.DelegatedAmount, err = decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read DelegatedAmount when decoding TokenAccount: %w", err)
	}

	acct.CloseAuthority, err = readCOptionPubkey(decoder)
	if err != nil {
		return fmt.Errorf("failed to read CloseAuthority when decoding TokenAccount: %w", err)
	}

	return nil
}

func (acct *TokenAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteBytes(acct.Mint[:], false)
	_ = encoder.WriteBytes(acct.Owner[:], false)
	_ = encoder.WriteUint64(acct.Amount, bin.LE)
	_ = writeCOptionPubkey(encoder, acct.Delegate)
	_ = encoder.WriteByte(acct.State)
	if acct.IsNative == nil {
		_ = encoder.WriteUint32(0, bin.LE)
		_ = encoder.WriteUint64(0, bin.LE)
	} else {
		_ = encoder.WriteUint32(1, bin.LE)
		_ = encoder.WriteUint64(*acct.IsNative, bin.LE)
	}
	_ = encoder.WriteUint64(acct.DelegatedAmount, bin.LE)
	return writeCOptionPubkey(encoder, acct.CloseAuthority)
}

func (acct *TokenAccount) Marshal() []byte {
	buf := new(bytes.Buffer)
	err := acct.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		panic("shouldn't fail")
	}
	return buf.Bytes()
}

func (acct *TokenAccount) IsInitialized() bool {
	return acct.State != TokenAccountStateUninitialized
}

func (acct *TokenAccount) IsFrozen() bool {
	return acct.State == TokenAccountStateFrozen
}

func UnmarshalTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) != TokenAccountLen {
		return nil, InstrErrInvalidAccountData
	}
	acct := new(TokenAccount)
	err := acct.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, InstrErrInvalidAccountData
	}
	return acct, nil
}
