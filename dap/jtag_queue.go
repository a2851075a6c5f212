package dap

import "fmt"

// ResultTransform tags how a queued JTAG command's raw response should be
// interpreted when fetched from BatchResults. A tagged enum rather than a
// heap-allocated closure per command, so a queue of thousands of commands
// stays a flat slice.
type ResultTransform uint8

const (
	TransformAsU32 ResultTransform = iota
	TransformAsNone
)

// JtagWriteCommand is one scheduled 35-bit DR shift: the IR address to
// select, the little-endian payload bytes, its bit length, and how to
// interpret its eventual response.
type JtagWriteCommand struct {
	IRAddr    uint32
	Data      []byte
	LenBits   uint32
	Transform ResultTransform
}

// jtagWriteCommand builds the JtagWriteCommand encoding a single transfer.
func (t *DapTransfer) jtagWriteCommand() JtagWriteCommand {
	payload, ir := EncodeJTAGPayload(t)
	transform := TransformAsU32
	if t.IsAbort() {
		transform = TransformAsNone
	}
	return JtagWriteCommand{
		IRAddr:    ir,
		Data:      payloadToBytes(payload),
		LenBits:   jtagDRBits,
		Transform: transform,
	}
}

// CommandHandle identifies a command scheduled on a CommandQueue, in
// schedule order.
type CommandHandle int

// CommandQueue is the ordered sequence of JTAG DR shifts a single
// WriteRegisterBatch call executes in order, stopping at the first
// protocol error.
type CommandQueue struct {
	commands []JtagWriteCommand
}

func NewCommandQueue() *CommandQueue { return &CommandQueue{} }

// Schedule appends cmd to the queue and returns a handle to fetch its
// eventual result from BatchResults.
func (q *CommandQueue) Schedule(cmd JtagWriteCommand) CommandHandle {
	q.commands = append(q.commands, cmd)
	return CommandHandle(len(q.commands) - 1)
}

// Commands returns the scheduled commands in order. Transports use this to
// execute the queue; callers of Schedule should not mutate the result.
func (q *CommandQueue) Commands() []JtagWriteCommand { return q.commands }

func (q *CommandQueue) Len() int { return len(q.commands) }

// ResultKind tags CommandResult's payload.
type ResultKind uint8

const (
	ResultNone ResultKind = iota
	ResultU32
)

// CommandResult is one decoded JTAG command response.
type CommandResult struct {
	Kind  ResultKind
	Value uint32
}

// BatchResults holds the raw 35-bit responses a transport captured while
// executing a CommandQueue, resolved into typed CommandResults on demand
// via Take.
type BatchResults struct {
	queue *CommandQueue
	raw   []uint64
}

// NewBatchResults is used by transports to report how far a batch executed
// and with what raw per-command responses.
func NewBatchResults(queue *CommandQueue, raw []uint64) *BatchResults {
	return &BatchResults{queue: queue, raw: raw}
}

// Completed is how many scheduled commands actually executed and have a
// raw response available.
func (r *BatchResults) Completed() int { return len(r.raw) }

// Raw returns the unprocessed 35-bit response captured for handle h.
func (r *BatchResults) Raw(h CommandHandle) uint64 { return r.raw[h] }

// Take resolves handle h's raw response into a typed CommandResult per its
// scheduled ResultTransform, applying the status mapping DecodeJTAGResponse
// defines.
func (r *BatchResults) Take(h CommandHandle) (CommandResult, error) {
	if int(h) >= len(r.raw) {
		return CommandResult{}, fmt.Errorf("dap: command %d has no response", h)
	}

	cmd := r.queue.commands[h]
	if cmd.Transform == TransformAsNone {
		return CommandResult{Kind: ResultNone}, nil
	}

	value, status := DecodeJTAGResponse(r.raw[h])
	if status.IsFailed() {
		return CommandResult{}, status.Err()
	}
	return CommandResult{Kind: ResultU32, Value: value}, nil
}

// PartialBatchError reports that WriteRegisterBatch stopped before
// executing every scheduled command. Cause is either a *DapError (the
// transport decoded a non-OK status mid-batch) or a transport-level error
// (USB/driver failure); callers propagate it verbatim.
type PartialBatchError struct {
	Results *BatchResults
	Cause   error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("dap: jtag batch stopped after %d/%d commands: %v",
		e.Results.Completed(), len(e.Results.queue.commands), e.Cause)
}

func (e *PartialBatchError) Unwrap() error { return e.Cause }
