package sealevel

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/solbootcamp/vaultkit/pkg/accounts"
	"github.com/solbootcamp/vaultkit/pkg/base58"
	"k8s.io/klog/v2"
)

const SysvarClockAddrStr = "SysvarC1ock11111111111111111111111111111111"

var SysvarClockAddr = base58.MustDecodeFromString(SysvarClockAddrStr)

const SysvarClockStructLen = 40

// SlotsPerEpoch is fixed; epochs only feed the clock's epoch fields.
const SlotsPerEpoch = 432000

type SysvarClock struct {
	Slot                uint64
	EpochStartTimestamp int64
	Epoch               uint64
	LeaderScheduleEpoch uint64
	UnixTimestamp       int64
}

func (sc *SysvarClock) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	slot, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Slot when decoding SysvarClock: %w", err)
	}
	sc.Slot = slot

	epochStartTimestamp, err := decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read EpochStartTimestamp when decoding SysvarClock: %w", err)
	}
	sc.EpochStartTimestamp = epochStartTimestamp

	epoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read Epoch when decoding SysvarClock: %w", err)
	}
	sc.Epoch = epoch

	leaderScheduleEpoch, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LeaderScheduleEpoch when decoding SysvarClock: %w", err)
	}
	sc.LeaderScheduleEpoch = leaderScheduleEpoch

	unixTimestamp, err := decoder.ReadInt64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read UnixTimestamp when decoding SysvarClock: %w", err)
	}
	sc.UnixTimestamp = unixTimestamp
	return
}

func (sc *SysvarClock) MarshalWithEncoder(encoder *bin.Encoder) error {
	_ = encoder.WriteUint64(sc.Slot, bin.LE)
	_ = encoder.WriteInt64(sc.EpochStartTimestamp, bin.LE)
	_ = encoder.WriteUint64(sc.Epoch, bin.LE)
	_ = encoder.WriteUint64(sc.LeaderScheduleEpoch, bin.LE)
	return encoder.WriteInt64(sc.UnixTimestamp, bin.LE)
}

func ReadClockSysvar(accts accounts.Accounts) (SysvarClock, error) {
	var clock SysvarClock

	data, err := readSysvarData(accts, SysvarClockAddr)
	if err != nil {
		return clock, err
	}

	err = clock.UnmarshalWithDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return clock, InstrErrUnsupportedSysvar
	}
	return clock, nil
}

func WriteClockSysvar(accts accounts.Accounts, clock SysvarClock) error {
	return writeSysvar(accts, SysvarClockAddr, &clock)
}

// UpdateClockSysvar advances the clock to slot. The clock never moves
// backwards.
func UpdateClockSysvar(accts accounts.Accounts, slot uint64, unixTimestamp int64) error {
	clock, err := ReadClockSysvar(accts)
	if err != nil && err != InstrErrUnsupportedSysvar {
		return err
	}

	if err == nil && slot < clock.Slot {
		return fmt.Errorf("clock cannot move backwards from slot %d to %d", clock.Slot, slot)
	}

	epoch := slot / SlotsPerEpoch
	if epoch != clock.Epoch || err != nil {
		clock.EpochStartTimestamp = unixTimestamp
	}
	clock.Slot = slot
	clock.Epoch = epoch
	clock.LeaderScheduleEpoch = epoch + 1
	clock.UnixTimestamp = unixTimestamp

	klog.V(2).Infof("updating clock sysvar to slot %d", slot)
	return WriteClockSysvar(accts, clock)
}
