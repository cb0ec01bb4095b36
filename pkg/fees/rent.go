package fees

import (
	"errors"

	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/sealevel"
	"k8s.io/klog/v2"
)

const (
	RentStateUninitialized = iota
	RentStateRentPaying
	RentStateRentExempt
)

var TxErrInsufficientFundsForRent = errors.New("TxErrInsufficientFundsForRent")

type RentPayingInfo struct {
	Lamports uint64
	DataSize uint64
}

type RentStateInfo struct {
	RentState      uint64
	RentPayingInfo RentPayingInfo
}

func rentStateFromAcct(acct *accounts.Account, rent *sealevel.SysvarRent) *RentStateInfo {
	if acct.Lamports == 0 {
		return &RentStateInfo{RentState: RentStateUninitialized}
	} else if rent.IsExempt(acct.Lamports, uint64(len(acct.Data))) {
		return &RentStateInfo{RentState: RentStateRentExempt}
	} else {
		return &RentStateInfo{RentState: RentStateRentPaying, RentPayingInfo: RentPayingInfo{Lamports: acct.Lamports, DataSize: uint64(len(acct.Data))}}
	}
}

// NewRentStateInfo snapshots the rent state of every writable transaction
// account. Read-only accounts get a nil entry.
func NewRentStateInfo(rent *sealevel.SysvarRent, txAccts *sealevel.TransactionAccounts, writable []bool) ([]*RentStateInfo, error) {
	rentStateInfos := make([]*RentStateInfo, len(writable))

	for idx, isWritable := range writable {
		if !isWritable {
			continue
		}
		acct, err := txAccts.GetAccount(uint64(idx))
		if err != nil {
			return nil, err
		}
		rentStateInfos[idx] = rentStateFromAcct(acct, rent)
	}

	return rentStateInfos, nil
}

// An account may end a transaction rent-paying only if it already was, with
// the same size and no more lamports than before.
func checkRentStateTransitionAllowed(preRentState *RentStateInfo, postRentState *RentStateInfo) bool {
	if preRentState == nil || postRentState == nil {
		return true
	}

	switch postRentState.RentState {
	case RentStateUninitialized, RentStateRentExempt:
		return true
	}

	if preRentState.RentState != RentStateRentPaying {
		return false
	}
	return postRentState.RentPayingInfo.DataSize == preRentState.RentPayingInfo.DataSize &&
		postRentState.RentPayingInfo.Lamports <= preRentState.RentPayingInfo.Lamports
}

func VerifyRentStateChanges(preStates []*RentStateInfo, postStates []*RentStateInfo, txAccts *sealevel.TransactionAccounts) error {
	if len(preStates) != len(postStates) {
		return sealevel.InstrErrNotEnoughAccountKeys
	}

	for idx := range preStates {
		if !checkRentStateTransitionAllowed(preStates[idx], postStates[idx]) {
			acct, _ := txAccts.GetAccount(uint64(idx))
			if acct != nil {
				klog.Errorf("account %s left rent-paying (%d lamports, %d bytes)", acct.Key, acct.Lamports, len(acct.Data))
			}
			return TxErrInsufficientFundsForRent
		}
	}

	return nil
}
