package sealevel

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/base58"
)

const SysvarOwnerStr = "Sysvar1111111111111111111111111111111111111"

var SysvarOwnerAddr = base58.MustDecodeFromString(SysvarOwnerStr)

type sysvarEncodable interface {
	MarshalWithEncoder(encoder *bin.Encoder) error
}

func writeSysvar(accts accounts.Accounts, addr [32]byte, sysvar sysvarEncodable) error {
	data := new(bytes.Buffer)
	enc := bin.NewBinEncoder(data)
	err := sysvar.MarshalWithEncoder(enc)
	if err != nil {
		return err
	}

	acct, err := accts.GetAccount(&addr)
	if err != nil {
		return err
	}
	if acct == nil {
		acct = &accounts.Account{Key: addr, Owner: SysvarOwnerAddr, Lamports: 1}
	} else {
		acct = acct.Clone()
	}
	acct.Data = data.Bytes()

	return accts.SetAccount(&addr, acct)
}

func readSysvarData(accts accounts.Accounts, addr [32]byte) ([]byte, error) {
	acct, err := accts.GetAccount(&addr)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, InstrErrUnsupportedSysvar
	}
	return acct.Data, nil
}
