package probe

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ftahirops/hpcsentry/model"
)

// rawRecord mirrors bpf/events.c's struct event field-for-field,
// including its two bytes of explicit tail padding — encoding/binary
// reads fields in declared order at their natural size and does not
// infer C struct padding on its own.
type rawRecord struct {
	Timestamp uint64
	Bytes     uint64
	NetBytes  uint64
	PID       uint32
	TID       uint32
	UID       uint32
	SyscallID uint32
	PrevPID   uint32
	NextPID   uint32
	PrevState uint32
	Kind      uint8
	Proto     uint8
	_         [2]byte
}

const rawRecordSize = 56

// decodeEvent parses one ring buffer sample into a model.RawEvent.
func decodeEvent(sample []byte) (model.RawEvent, error) {
	if len(sample) < rawRecordSize {
		return model.RawEvent{}, fmt.Errorf("short ring buffer sample: %d bytes", len(sample))
	}

	var rec rawRecord
	if err := binary.Read(bytes.NewReader(sample), binary.LittleEndian, &rec); err != nil {
		return model.RawEvent{}, fmt.Errorf("decode ring buffer sample: %w", err)
	}

	kind := model.EventKind(rec.Kind)
	return model.RawEvent{
		Kind:      kind,
		PID:       rec.PID,
		TID:       rec.TID,
		UID:       rec.UID,
		Timestamp: rec.Timestamp,
		SyscallID: rec.SyscallID,
		Bytes:     rec.Bytes,
		NetBytes:  rec.NetBytes,
		Proto:     rec.Proto,
		PrevPID:   rec.PrevPID,
		NextPID:   rec.NextPID,
		PrevState: rec.PrevState,
	}, nil
}
