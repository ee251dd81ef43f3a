package replication

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/codec"
	"github.com/dcasadevall/multiplayer-prototype-sub001/internal/core/models"
	"github.com/dcasadevall/multiplayer-prototype-sub001/pkg/generic"
)

// Wire layout, little endian throughout:
//
//	message: tick u64 | form u8 | count u16 | delta*
//	delta:   id [16] | flags u8 | added u16 | (len u32 | component)* | removed u16 | tag u64*
//
// component is the codec output: an 8-byte type tag followed by its body.
const (
	flagNew       byte = 1 << 0
	flagDestroyed byte = 1 << 1

	formIncremental byte = 0
	formFull        byte = 1

	idSize = 16

	maxPooledBuffer = 64 << 10
)

// MessageCodec encodes and decodes WorldDeltaMessage frames. It is safe for
// concurrent use.
type MessageCodec struct {
	codecs  *codec.Registry
	buffers *generic.Pool[*bytes.Buffer]
}

func NewMessageCodec(codecs *codec.Registry) *MessageCodec {
	return &MessageCodec{
		codecs: codecs,
		buffers: generic.NewPool(
			func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 1024)) },
			func(b *bytes.Buffer) { b.Reset() },
		),
	}
}

// Encode serializes msg. The returned slice is owned by the caller.
func (w *MessageCodec) Encode(msg WorldDeltaMessage) ([]byte, error) {
	if len(msg.Deltas) > math.MaxUint16 {
		return nil, fmt.Errorf("encode %d deltas: %w", len(msg.Deltas), ErrTooManyEntries)
	}

	buf := w.buffers.Get()
	defer func() {
		if buf.Cap() <= maxPooledBuffer {
			w.buffers.Put(buf)
		}
	}()

	var scratch [8]byte
	writeU16 := func(v int) {
		binary.LittleEndian.PutUint16(scratch[:2], uint16(v))
		buf.Write(scratch[:2])
	}

	binary.LittleEndian.PutUint64(scratch[:], msg.Tick)
	buf.Write(scratch[:])
	if msg.Full {
		buf.WriteByte(formFull)
	} else {
		buf.WriteByte(formIncremental)
	}
	writeU16(len(msg.Deltas))

	for _, d := range msg.Deltas {
		if len(d.AddedOrModified) > math.MaxUint16 || len(d.Removed) > math.MaxUint16 {
			return nil, fmt.Errorf("encode %s: %w", d.EntityID, ErrTooManyEntries)
		}
		id := [idSize]byte(d.EntityID)
		buf.Write(id[:])

		var flags byte
		if d.IsNew {
			flags |= flagNew
		}
		if d.IsDestroyed {
			flags |= flagDestroyed
		}
		buf.WriteByte(flags)

		writeU16(len(d.AddedOrModified))
		for _, c := range d.AddedOrModified {
			data, err := w.codecs.Serialize(c)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", d.EntityID, err)
			}
			binary.LittleEndian.PutUint32(scratch[:4], uint32(len(data)))
			buf.Write(scratch[:4])
			buf.Write(data)
		}

		writeU16(len(d.Removed))
		for _, tag := range d.Removed {
			binary.LittleEndian.PutUint64(scratch[:], uint64(tag))
			buf.Write(scratch[:])
		}
	}

	return bytes.Clone(buf.Bytes()), nil
}

// Decode parses a frame produced by Encode. Truncated input, trailing bytes
// and unknown type tags are errors.
func (w *MessageCodec) Decode(data []byte) (WorldDeltaMessage, error) {
	rd := reader{data: data}
	var msg WorldDeltaMessage

	msg.Tick = rd.u64()
	switch form := rd.u8(); form {
	case formIncremental:
	case formFull:
		msg.Full = true
	default:
		if rd.err == nil {
			return WorldDeltaMessage{}, fmt.Errorf("form %d: %w", form, ErrMalformedMessage)
		}
	}
	count := int(rd.u16())
	if rd.err != nil {
		return WorldDeltaMessage{}, rd.err
	}

	msg.Deltas = make([]EntityDelta, 0, count)
	for i := 0; i < count; i++ {
		var d EntityDelta
		d.EntityID = models.EntityID(rd.id())
		flags := rd.u8()
		d.IsNew = flags&flagNew != 0
		d.IsDestroyed = flags&flagDestroyed != 0

		added := int(rd.u16())
		for j := 0; j < added && rd.err == nil; j++ {
			payload := rd.bytes(int(rd.u32()))
			if rd.err != nil {
				break
			}
			c, err := w.codecs.Deserialize(payload)
			if err != nil {
				return WorldDeltaMessage{}, fmt.Errorf("decode %s: %w", d.EntityID, err)
			}
			d.AddedOrModified = append(d.AddedOrModified, c)
		}

		removed := int(rd.u16())
		for j := 0; j < removed && rd.err == nil; j++ {
			d.Removed = append(d.Removed, codec.TypeTag(rd.u64()))
		}
		if rd.err != nil {
			return WorldDeltaMessage{}, rd.err
		}
		msg.Deltas = append(msg.Deltas, d)
	}

	if len(rd.data) != 0 {
		return WorldDeltaMessage{}, fmt.Errorf("%d trailing bytes: %w", len(rd.data), ErrMalformedMessage)
	}
	return msg, nil
}

// reader consumes data front to back and latches the first error.
type reader struct {
	data []byte
	err  error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data) < n {
		r.err = fmt.Errorf("need %d bytes, have %d: %w", n, len(r.data), ErrMalformedMessage)
		return nil
	}
	out := r.data[:n]
	r.data = r.data[n:]
	return out
}

func (r *reader) u8() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) id() [idSize]byte {
	var id [idSize]byte
	if b := r.take(idSize); b != nil {
		copy(id[:], b)
	}
	return id
}

func (r *reader) bytes(n int) []byte {
	return r.take(n)
}
