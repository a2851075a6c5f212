// Package serialswd implements dap.SwdIO and dap.JtagAccess for the class
// of cheap microcontroller-based SWD/JTAG dongles that expose a
// length-prefixed binary command protocol over a USB-CDC serial port, talking to the
// adapter over a raw-mode tty the same way other serial hardware links in
// this tree are opened and framed.
package serialswd

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/term"
	"golang.org/x/sys/unix"

	"github.com/swdprobe/adiv5/dap"
)

// Wire command bytes the adapter firmware understands. Framing is a single
// command byte, a little-endian uint32 payload length, the payload; the
// reply is one status byte, a little-endian uint32 length, then the reply
// payload.
const (
	cmdSwdIO       byte = 0x01
	cmdWriteReg    byte = 0x02
	cmdSetIdle     byte = 0x03
	cmdActiveProto byte = 0x04

	replyOK byte = 0x00
)

// Probe talks to a serial SWD/JTAG adapter over a raw-mode tty.
type Probe struct {
	port       *term.Term
	reader     *bufio.Reader
	idleCycles uint8
	protocol   dap.WireProtocol
	settings   dap.SwdSettings
	stats      dap.Statistics
}

// Open opens devicePath at baud in raw mode: term.Open, term.RawMode, then
// an explicit baud set.
func Open(devicePath string, baud int, protocol dap.WireProtocol, settings dap.SwdSettings) (*Probe, error) {
	t, err := term.Open(devicePath, term.RawMode)
	if err != nil {
		return nil, fmt.Errorf("serialswd: open %s: %w", devicePath, err)
	}

	if baud != 0 {
		if err := t.SetSpeed(baud); err != nil {
			t.Close()
			return nil, fmt.Errorf("serialswd: set speed %d: %w", baud, err)
		}
	}

	if err := t.SetRaw(); err != nil {
		t.Close()
		return nil, fmt.Errorf("serialswd: set raw mode: %w", err)
	}

	return &Probe{
		port:     t,
		reader:   bufio.NewReader(t),
		protocol: protocol,
		settings: settings,
	}, nil
}

func (p *Probe) Close() error { return p.port.Close() }

// sendFrame writes a command frame and blocks for its reply payload. ctx is
// checked once before the frame is written; the blocking reads do not
// observe cancellation.
func (p *Probe) sendFrame(ctx context.Context, cmd byte, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	frame := make([]byte, 0, 5+len(payload))
	frame = append(frame, cmd)
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(payload)))
	frame = append(frame, payload...)

	if _, err := p.port.Write(frame); err != nil {
		return nil, fmt.Errorf("serialswd: write frame: %w", err)
	}

	status, err := p.reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("serialswd: read status: %w", err)
	}
	if status != replyOK {
		return nil, fmt.Errorf("serialswd: adapter reported error status 0x%02x", status)
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(p.reader, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("serialswd: read reply length: %w", err)
	}
	replyLen := binary.LittleEndian.Uint32(lenBuf[:])

	reply := make([]byte, replyLen)
	if _, err := io.ReadFull(p.reader, reply); err != nil {
		return nil, fmt.Errorf("serialswd: read reply payload: %w", err)
	}

	return reply, nil
}

// SwdIO packs seq's drive bits (and an output/input mask) into one frame
// and unpacks the adapter's sampled bits from the reply, one byte per bit
// for simplicity over the already-slow serial link.
func (p *Probe) SwdIO(ctx context.Context, seq dap.IoSequence) ([]bool, error) {
	payload := make([]byte, 0, len(seq)*2)
	for _, item := range seq {
		payload = append(payload, boolByte(item.Kind == dap.IoInput), boolByte(item.Value))
	}

	reply, err := p.sendFrame(ctx, cmdSwdIO, payload)
	if err != nil {
		return nil, dap.WrapProbeError("serialswd swd_io", err)
	}

	result := make([]bool, len(reply))
	for i, b := range reply {
		result[i] = b != 0
	}
	return result, nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// WriteRegister shifts one 35-bit JTAG DR at irAddr.
func (p *Probe) WriteRegister(ctx context.Context, irAddr uint32, data []byte, lenBits uint32) ([]byte, error) {
	payload := make([]byte, 0, 8+len(data))
	payload = binary.LittleEndian.AppendUint32(payload, irAddr)
	payload = binary.LittleEndian.AppendUint32(payload, lenBits)
	payload = append(payload, data...)

	reply, err := p.sendFrame(ctx, cmdWriteReg, payload)
	if err != nil {
		return nil, dap.WrapProbeError("serialswd write_register", err)
	}
	return reply, nil
}

// WriteRegisterBatch shifts each queued command in turn over the same
// serial link, stopping at the first transport error or decoded non-OK
// JTAG status, per the write_register_batch contract dap.PerformJTAGTransfers
// expects.
func (p *Probe) WriteRegisterBatch(ctx context.Context, queue *dap.CommandQueue) (*dap.BatchResults, error) {
	commands := queue.Commands()
	raw := make([]uint64, 0, len(commands))

	for _, cmd := range commands {
		reply, err := p.WriteRegister(ctx, cmd.IRAddr, cmd.Data, cmd.LenBits)
		if err != nil {
			return nil, &dap.PartialBatchError{
				Results: dap.NewBatchResults(queue, raw),
				Cause:   err,
			}
		}

		var v uint64
		for i, b := range reply {
			if i >= 8 {
				break
			}
			v |= uint64(b) << uint(8*i)
		}
		raw = append(raw, v)

		if status := v & 0b111; status != 0x2 {
			dapErr := dap.ErrNoAcknowledge
			if status == 0x1 {
				dapErr = dap.ErrWaitResponse
			}
			return nil, &dap.PartialBatchError{
				Results: dap.NewBatchResults(queue, raw),
				Cause:   dapErr,
			}
		}
	}

	return dap.NewBatchResults(queue, raw), nil
}

// SetIdleCycles / IdleCycles configure and report the adapter's JTAG idle
// padding; the adapter firmware interprets SetIdleCycles itself, so this
// probe only mirrors the value for IdleCycles().
func (p *Probe) SetIdleCycles(n uint8) error {
	if _, err := p.sendFrame(context.Background(), cmdSetIdle, []byte{n}); err != nil {
		return dap.WrapProbeError("serialswd set_idle_cycles", err)
	}
	p.idleCycles = n
	return nil
}

func (p *Probe) IdleCycles() uint8 { return p.idleCycles }

func (p *Probe) ActiveProtocol() (dap.WireProtocol, error) { return p.protocol, nil }
func (p *Probe) SwdSettings() dap.SwdSettings               { return p.settings }
func (p *Probe) ProbeStatistics() *dap.Statistics           { return &p.stats }

// flushTermios drains any buffered input using the raw termios ioctl, for
// callers that want to resynchronize after a protocol error; pkg/term's
// high-level API doesn't expose this, so it goes through golang.org/x/sys
// directly.
func flushTermios(fd uintptr) error {
	return unix.IoctlSetInt(int(fd), unix.TCFLSH, unix.TCIOFLUSH)
}

// Flush discards any unread bytes buffered on the wire.
func (p *Probe) Flush() error {
	return flushTermios(p.port.Fd())
}
