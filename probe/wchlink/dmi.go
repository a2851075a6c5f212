package wchlink

import (
	"context"
	"fmt"
	"time"

	"github.com/swdprobe/adiv5/dap"
)

// USB transport primitive the shim needs: exchange a command packet for a
// response packet. Satisfied by *Transport; a separate interface keeps
// DmiShim testable against a fake.
type usbExchanger interface {
	Exchange(ctx context.Context, cmd []byte, reply []byte) (int, error)
}

// DMI op codes embedded in bits [1:0] of a DMI write.
type dmiOp uint8

const (
	dmiOpNop dmiOp = iota
	dmiOpRead
	dmiOpWrite
)

// JTAG IR values the RISC-V DTM exposes, and the ones this shim translates.
const (
	irIDCode   uint32 = 0x01
	irDTMCS    uint32 = 0x10
	irDMI      uint32 = 0x11
	irBypass   uint32 = 0x1f

	idcodeConstant uint32 = 0x00000001
	dtmcsConstant  uint32 = 0x71 // abits=7, version=1.0

	dmireset     uint32 = 1 << 16
	dmihardreset uint32 = 1 << 17

	dmiAddrResume uint32 = 0x10
	dmiDataResume uint32 = 0x40000001

	resumeSettleDelay = 10 * time.Millisecond
)

// DmiShim implements dap.JtagAccess over the vendor USB DMI protocol,
// translating each IR-selected DR shift into the DMI command table,
// including the "NOP returns last read" quirk: a NOP issued
// with addr=0 and data=0 returns the previous read's (addr, data) pair
// without a USB round-trip.
type DmiShim struct {
	usb usbExchanger

	lastReadAddr uint32
	lastReadData uint32
	haveLastRead bool

	idleCycles uint8
	stats      dap.Statistics
}

// NewDmiShim wraps a USB transport in the DMI↔JTAG translation shim.
func NewDmiShim(usb usbExchanger) *DmiShim {
	return &DmiShim{usb: usb}
}

// WriteRegister is the single-command entry point dap.JtagAccess requires:
// one 35-bit-framed DR shift (here, up to 41 bits for a DMI access) at the
// given IR.
func (s *DmiShim) WriteRegister(ctx context.Context, irAddr uint32, data []byte, lenBits uint32) ([]byte, error) {
	switch irAddr {
	case irIDCode:
		return le32(idcodeConstant), nil

	case irDTMCS:
		if len(data) == 0 || lenBits == 0 {
			return le32(dtmcsConstant), nil
		}
		return s.writeDTMCS(ctx, leToU32(data))

	case irDMI:
		return s.writeDMI(ctx, data, lenBits)

	case irBypass:
		return []byte{0, 0, 0, 0}, nil

	default:
		return nil, fmt.Errorf("wchlink: unsupported JTAG IR 0x%x", irAddr)
	}
}

func (s *DmiShim) writeDTMCS(ctx context.Context, value uint32) ([]byte, error) {
	if value&dmihardreset != 0 {
		return nil, fmt.Errorf("wchlink: DMIHARDRESET is not supported")
	}
	if value&dmireset != 0 {
		if err := s.rawDmi(ctx, dmiAddrResume, 0, dmiOpWrite); err != nil {
			return nil, err
		}
		if err := s.rawDmi(ctx, dmiAddrResume, 1, dmiOpWrite); err != nil {
			return nil, err
		}
	}
	return le32(dtmcsConstant), nil
}

func (s *DmiShim) writeDMI(ctx context.Context, data []byte, lenBits uint32) ([]byte, error) {
	if lenBits != 41 {
		return nil, fmt.Errorf("wchlink: DMI write expected 41 bits, got %d", lenBits)
	}

	payload := bytesToU64(data)
	op := dmiOp(payload & 0x3)
	value := (payload >> 2) & 0xffffffff
	addr := uint32((payload >> 34) & 0x3f)

	if op == dmiOpNop && addr == 0 && value == 0 {
		if s.haveLastRead {
			return packDMI(s.lastReadAddr, s.lastReadData, dmiOpNop), nil
		}
		return packDMI(0, 0, dmiOpNop), nil
	}

	switch op {
	case dmiOpRead:
		data, err := s.dmiRead(ctx, addr)
		if err != nil {
			return nil, err
		}
		s.lastReadAddr, s.lastReadData, s.haveLastRead = addr, data, true
		return packDMI(addr, data, dmiOpNop), nil

	case dmiOpWrite:
		if err := s.rawDmi(ctx, addr, uint32(value), dmiOpWrite); err != nil {
			return nil, err
		}
		if addr == dmiAddrResume && uint32(value) == dmiDataResume {
			time.Sleep(resumeSettleDelay)
		}
		return packDMI(addr, uint32(value), dmiOpNop), nil

	case dmiOpNop:
		// A NOP with a non-zero addr/value doesn't hit the "return last
		// read" cache above; it's a real DMI_OP_NOP and still round-trips
		// over USB.
		data, err := s.dmiExchange(ctx, addr, uint32(value), dmiOpNop)
		if err != nil {
			return nil, err
		}
		return packDMI(addr, data, dmiOpNop), nil

	default:
		return nil, fmt.Errorf("wchlink: invalid DMI op %d", op)
	}
}

// rawDmi issues a DMI op over the USB transport, discarding the response
// payload - used for writes where the caller doesn't need the readback.
func (s *DmiShim) rawDmi(ctx context.Context, addr, value uint32, op dmiOp) error {
	_, err := s.dmiExchange(ctx, addr, value, op)
	return err
}

// dmiRead issues a DMI read and returns the data word it reports.
func (s *DmiShim) dmiRead(ctx context.Context, addr uint32) (uint32, error) {
	return s.dmiExchange(ctx, addr, 0, dmiOpRead)
}

func (s *DmiShim) dmiExchange(ctx context.Context, addr, value uint32, op dmiOp) (uint32, error) {
	cmd := packDMIBytes(addr, value, op)
	reply := make([]byte, 16)
	n, err := s.usb.Exchange(ctx, cmd, reply)
	if err != nil {
		return 0, dap.WrapProbeError("wchlink dmi exchange", err)
	}
	if n < 8 {
		return 0, fmt.Errorf("wchlink: short DMI reply (%d bytes)", n)
	}
	return uint32((bytesToU64(reply[:8]) >> 2) & 0xffffffff), nil
}

func packDMI(addr, data uint32, op dmiOp) []byte {
	return packDMIBytes(addr, data, op)
}

func packDMIBytes(addr, data uint32, op dmiOp) []byte {
	packed := (uint64(addr) << 34) | (uint64(data) << 2) | uint64(op)
	buf := make([]byte, 16)
	for i := 0; i < 8; i++ {
		buf[i] = byte(packed >> uint(8*i))
	}
	return buf
}

func bytesToU64(data []byte) uint64 {
	var v uint64
	for i, b := range data {
		if i >= 8 {
			break
		}
		v |= uint64(b) << uint(8*i)
	}
	return v
}

func leToU32(data []byte) uint32 { return uint32(bytesToU64(data)) }

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// WriteRegisterBatch executes each queued command against WriteRegister in
// turn, matching the JtagAccess batch contract.
func (s *DmiShim) WriteRegisterBatch(ctx context.Context, queue *dap.CommandQueue) (*dap.BatchResults, error) {
	commands := queue.Commands()
	raw := make([]uint64, 0, len(commands))

	for _, cmd := range commands {
		reply, err := s.WriteRegister(ctx, cmd.IRAddr, cmd.Data, cmd.LenBits)
		if err != nil {
			return nil, &dap.PartialBatchError{
				Results: dap.NewBatchResults(queue, raw),
				Cause:   err,
			}
		}
		raw = append(raw, bytesToU64(reply))
	}

	return dap.NewBatchResults(queue, raw), nil
}

func (s *DmiShim) SetIdleCycles(n uint8) error { s.idleCycles = n; return nil }
func (s *DmiShim) IdleCycles() uint8           { return s.idleCycles }

func (s *DmiShim) ActiveProtocol() (dap.WireProtocol, error) { return dap.ProtocolJTAG, nil }
func (s *DmiShim) SwdSettings() dap.SwdSettings              { return dap.DefaultSettings() }
func (s *DmiShim) ProbeStatistics() *dap.Statistics          { return &s.stats }

// SwdIO is unsupported: the WCH-Link JTAG-over-USB shim never speaks SWD.
func (s *DmiShim) SwdIO(ctx context.Context, seq dap.IoSequence) ([]bool, error) {
	return nil, fmt.Errorf("wchlink: SWD not supported")
}
