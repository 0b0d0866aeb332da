package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

// Event is one recorded spike.
type Event struct {
	Neuron uint32
	Time   uint32
	Trace  []byte
}

// segmentMagic fronts every sealed segment frame.
const segmentMagic = 0x54524153 // "SART" little-endian: S A R T

// Frame layout:
//
//	[magic u32][compression u8][pad u8 x3][traceSize u32][eventCount u32]
//	[block ...][crc32c u32]
//
// The CRC covers everything before the trailer. Records inside the block
// are fixed-stride: neuron u32, time u32, trace traceSize bytes.
const (
	frameHeaderSize  = 16
	frameTrailerSize = 4
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

var (
	// ErrCorruptSegment is returned when a frame fails structural or CRC
	// validation.
	ErrCorruptSegment = errors.New("recording: corrupt segment")
)

// Meta summarizes a sealed segment for the provenance manifest.
type Meta struct {
	Name      string `json:"name"`
	Events    int    `json:"events"`
	FirstTick uint32 `json:"first_tick"`
	LastTick  uint32 `json:"last_tick"`
	Bytes     int    `json:"bytes"`
	CRC32C    uint32 `json:"crc32c"`
}

// Builder accumulates events for one segment. Not safe for concurrent use.
type Builder struct {
	traceSize   int
	compression Compression

	payload []byte
	events  int
	first   uint32
	last    uint32
}

// NewBuilder creates a builder for events carrying traceSize-byte payloads.
func NewBuilder(traceSize int, compression Compression) *Builder {
	return &Builder{
		traceSize:   traceSize,
		compression: compression,
	}
}

// Record appends one event. Traces must be exactly the configured size.
func (b *Builder) Record(e Event) error {
	if len(e.Trace) != b.traceSize {
		return fmt.Errorf("recording: trace is %d bytes, want %d", len(e.Trace), b.traceSize)
	}
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], e.Neuron)
	binary.LittleEndian.PutUint32(hdr[4:8], e.Time)
	b.payload = append(b.payload, hdr[:]...)
	b.payload = append(b.payload, e.Trace...)

	if b.events == 0 || e.Time < b.first {
		b.first = e.Time
	}
	if e.Time > b.last {
		b.last = e.Time
	}
	b.events++
	return nil
}

// Len returns the number of recorded events.
func (b *Builder) Len() int { return b.events }

// PayloadBytes returns the uncompressed batch size so callers can cap
// segment growth.
func (b *Builder) PayloadBytes() int { return len(b.payload) }

// Seal compresses the batch into a frame and resets the builder. The
// returned Meta carries everything the manifest needs except the name.
func (b *Builder) Seal() ([]byte, Meta, error) {
	block, err := compressBlock(b.payload, b.compression)
	if err != nil {
		return nil, Meta{}, err
	}

	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(block)+frameTrailerSize)
	binary.LittleEndian.PutUint32(frame[0:4], segmentMagic)
	frame[4] = byte(b.compression)
	binary.LittleEndian.PutUint32(frame[8:12], uint32(b.traceSize))
	binary.LittleEndian.PutUint32(frame[12:16], uint32(b.events))
	frame = append(frame, block...)

	sum := crc32.Checksum(frame, castagnoli)
	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], sum)
	frame = append(frame, trailer[:]...)

	meta := Meta{
		Events:    b.events,
		FirstTick: b.first,
		LastTick:  b.last,
		Bytes:     len(frame),
		CRC32C:    sum,
	}

	b.payload = b.payload[:0]
	b.events = 0
	b.first = 0
	b.last = 0
	return frame, meta, nil
}

// Decode verifies and unpacks a sealed segment frame.
func Decode(frame []byte) ([]Event, error) {
	if len(frame) < frameHeaderSize+frameTrailerSize {
		return nil, fmt.Errorf("%w: frame too short", ErrCorruptSegment)
	}
	if binary.LittleEndian.Uint32(frame[0:4]) != segmentMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorruptSegment)
	}

	body := frame[:len(frame)-frameTrailerSize]
	want := binary.LittleEndian.Uint32(frame[len(frame)-frameTrailerSize:])
	if got := crc32.Checksum(body, castagnoli); got != want {
		return nil, fmt.Errorf("%w: crc mismatch %08x != %08x", ErrCorruptSegment, got, want)
	}

	compression := Compression(frame[4])
	traceSize := int(binary.LittleEndian.Uint32(frame[8:12]))
	count := int(binary.LittleEndian.Uint32(frame[12:16]))

	payload, err := decompressBlock(body[frameHeaderSize:], compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSegment, err)
	}

	stride := 8 + traceSize
	if len(payload) != count*stride {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d events of %d", ErrCorruptSegment, len(payload), count, stride)
	}

	events := make([]Event, count)
	for i := 0; i < count; i++ {
		rec := payload[i*stride : (i+1)*stride]
		trace := make([]byte, traceSize)
		copy(trace, rec[8:])
		events[i] = Event{
			Neuron: binary.LittleEndian.Uint32(rec[0:4]),
			Time:   binary.LittleEndian.Uint32(rec[4:8]),
			Trace:  trace,
		}
	}
	return events, nil
}
