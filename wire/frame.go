// Package wire implements length-prefixed msgpack framing for measurement
// streams (ingest and replay) and metric snapshots (export).
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/justapithecus/assay/metric"
)

// Frame size constants.
const (
	// MaxFrameSize is the maximum frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Frame type discriminants.
const (
	// MeasurementType marks a frame carrying one recorded measurement.
	MeasurementType = "measurement"
	// SnapshotType marks a frame carrying a full metric snapshot.
	SnapshotType = "snapshot"
)

// MeasurementFrame carries one recorded measurement on the wire. The
// measure is referenced by name; the receiver resolves it against its own
// registry.
type MeasurementFrame struct {
	// Type is the frame type discriminator, always MeasurementType.
	Type string `msgpack:"type"`
	// Measure is the name of the measure recorded against.
	Measure string `msgpack:"measure"`
	// Value is the recorded value.
	Value float64 `msgpack:"value"`
	// Tags is the full tag set the value was recorded under.
	Tags map[string]string `msgpack:"tags,omitempty"`
	// Ts is the recording timestamp in ISO 8601 UTC format, if known.
	Ts string `msgpack:"ts,omitempty"`
}

// SnapshotFrame carries a point-in-time metric snapshot on the wire.
type SnapshotFrame struct {
	// Type is the frame type discriminator, always SnapshotType.
	Type string `msgpack:"type"`
	// Ts is the snapshot timestamp in ISO 8601 UTC format.
	Ts string `msgpack:"ts"`
	// Metrics is one entry per view.
	Metrics []*metric.Metric `msgpack:"metrics"`
}

// FrameErrorKind classifies frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if this error is fatal for the stream. Partial and
// oversized frames leave the reader mid-frame with no way to resync;
// decode errors affect one frame only.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader io.Reader
}

// NewFrameDecoder creates a new frame decoder.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: r}
}

// ReadFrame reads a single frame from the stream.
// Returns the raw payload bytes (msgpack-encoded).
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	// Read 4-byte big-endian length prefix
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])

	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	return payload, nil
}

// frameTypeProbe is used to peek at the type field without full decode.
type frameTypeProbe struct {
	Type string `msgpack:"type"`
}

// DecodeFrame decodes a payload and returns either a *MeasurementFrame or
// a *SnapshotFrame, discriminated by the type field.
func DecodeFrame(payload []byte) (any, error) {
	var probe frameTypeProbe
	if err := msgpack.Unmarshal(payload, &probe); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode frame type",
			Err:  err,
		}
	}

	switch probe.Type {
	case MeasurementType:
		return DecodeMeasurement(payload)
	case SnapshotType:
		return DecodeSnapshot(payload)
	default:
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  fmt.Sprintf("unknown frame type %q", probe.Type),
		}
	}
}

// DecodeMeasurement decodes a payload as a MeasurementFrame.
func DecodeMeasurement(payload []byte) (*MeasurementFrame, error) {
	var frame MeasurementFrame
	if err := msgpack.Unmarshal(payload, &frame); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode measurement frame",
			Err:  err,
		}
	}
	return &frame, nil
}

// DecodeSnapshot decodes a payload as a SnapshotFrame.
func DecodeSnapshot(payload []byte) (*SnapshotFrame, error) {
	var frame SnapshotFrame
	if err := msgpack.Unmarshal(payload, &frame); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode snapshot frame",
			Err:  err,
		}
	}
	return &frame, nil
}

// EncodeFrame wraps a msgpack payload with its length prefix.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}

// EncodeMeasurement encodes a measurement as a framed msgpack payload.
// The frame's Type field is set regardless of its incoming value.
func EncodeMeasurement(frame *MeasurementFrame) ([]byte, error) {
	frame.Type = MeasurementType
	payload, err := msgpack.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode measurement frame: %w", err)
	}
	return EncodeFrame(payload)
}

// EncodeSnapshot encodes a metric snapshot as a framed msgpack payload.
// The frame's Type field is set regardless of its incoming value.
func EncodeSnapshot(frame *SnapshotFrame) ([]byte, error) {
	frame.Type = SnapshotType
	payload, err := msgpack.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot frame: %w", err)
	}
	return EncodeFrame(payload)
}
