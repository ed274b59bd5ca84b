package rangeimage

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Bridge wire format constants.
//
// The vendor SDK bridge publishes each acquired component as a burst of UDP
// datagrams. Every datagram starts with a fixed 16-byte chunk header. Chunk 0
// carries the frame metadata block; chunks 1..ChunkCount-1 carry consecutive
// slices of the raw grid as little-endian uint16 samples.
const (
	WireMagic   = 0x52C3 // chunk header marker ("R" 0x52 + format id)
	WireVersion = 1      // current wire format version

	ChunkHeaderSize = 16                      // magic(2) ver(1) flags(1) frame(4) idx(2) count(2) len(2) reserved(2)
	MetadataSize    = 60                      // width(2) height(2) captured(8) offsets(24) scales(24)
	MaxChunkPayload = 1400 - ChunkHeaderSize  // keep datagrams under a typical MTU
	flagMetadata    = 0x01
)

// Header field offsets within a chunk.
const (
	offMagic      = 0
	offVersion    = 2
	offFlags      = 3
	offFrameID    = 4
	offChunkIndex = 8
	offChunkCount = 10
	offPayloadLen = 12
)

// wireHeader is the decoded chunk header.
type wireHeader struct {
	frameID    uint32
	chunkIndex uint16
	chunkCount uint16
	payloadLen uint16
	metadata   bool
}

func parseHeader(packet []byte) (wireHeader, error) {
	var h wireHeader
	if len(packet) < ChunkHeaderSize {
		return h, fmt.Errorf("packet too short: %d bytes (header is %d)", len(packet), ChunkHeaderSize)
	}
	if magic := binary.LittleEndian.Uint16(packet[offMagic:]); magic != WireMagic {
		return h, fmt.Errorf("bad magic 0x%04X, want 0x%04X", magic, WireMagic)
	}
	if v := packet[offVersion]; v != WireVersion {
		return h, fmt.Errorf("unsupported wire version %d", v)
	}
	h.metadata = packet[offFlags]&flagMetadata != 0
	h.frameID = binary.LittleEndian.Uint32(packet[offFrameID:])
	h.chunkIndex = binary.LittleEndian.Uint16(packet[offChunkIndex:])
	h.chunkCount = binary.LittleEndian.Uint16(packet[offChunkCount:])
	h.payloadLen = binary.LittleEndian.Uint16(packet[offPayloadLen:])
	if h.chunkCount == 0 {
		return h, fmt.Errorf("frame %d: zero chunk count", h.frameID)
	}
	if h.chunkIndex >= h.chunkCount {
		return h, fmt.Errorf("frame %d: chunk index %d out of range (count %d)",
			h.frameID, h.chunkIndex, h.chunkCount)
	}
	if int(h.payloadLen) != len(packet)-ChunkHeaderSize {
		return h, fmt.Errorf("frame %d: payload length %d does not match packet (%d bytes after header)",
			h.frameID, h.payloadLen, len(packet)-ChunkHeaderSize)
	}
	return h, nil
}

func putHeader(buf []byte, h wireHeader) {
	binary.LittleEndian.PutUint16(buf[offMagic:], WireMagic)
	buf[offVersion] = WireVersion
	if h.metadata {
		buf[offFlags] = flagMetadata
	} else {
		buf[offFlags] = 0
	}
	binary.LittleEndian.PutUint32(buf[offFrameID:], h.frameID)
	binary.LittleEndian.PutUint16(buf[offChunkIndex:], h.chunkIndex)
	binary.LittleEndian.PutUint16(buf[offChunkCount:], h.chunkCount)
	binary.LittleEndian.PutUint16(buf[offPayloadLen:], h.payloadLen)
}

// EncodeFrame splits a component into wire datagrams: one metadata chunk
// followed by as many grid chunks as the payload budget requires. The
// returned slices are independently allocated and safe to hand to a UDP
// writer.
func EncodeFrame(c *Component) ([][]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("encode frame %d: %w", c.FrameID, err)
	}

	gridBytes := len(c.Raw) * 2
	dataChunks := (gridBytes + MaxChunkPayload - 1) / MaxChunkPayload
	chunkCount := dataChunks + 1
	if chunkCount > math.MaxUint16 {
		return nil, fmt.Errorf("encode frame %d: grid needs %d chunks, wire limit is %d",
			c.FrameID, chunkCount, math.MaxUint16)
	}

	packets := make([][]byte, 0, chunkCount)

	// Metadata chunk.
	meta := make([]byte, ChunkHeaderSize+MetadataSize)
	putHeader(meta, wireHeader{
		frameID:    c.FrameID,
		chunkIndex: 0,
		chunkCount: uint16(chunkCount),
		payloadLen: MetadataSize,
		metadata:   true,
	})
	p := meta[ChunkHeaderSize:]
	binary.LittleEndian.PutUint16(p[0:], uint16(c.Width))
	binary.LittleEndian.PutUint16(p[2:], uint16(c.Height))
	binary.LittleEndian.PutUint64(p[4:], uint64(c.Captured.UnixNano()))
	binary.LittleEndian.PutUint64(p[12:], math.Float64bits(c.OffsetX))
	binary.LittleEndian.PutUint64(p[20:], math.Float64bits(c.OffsetY))
	binary.LittleEndian.PutUint64(p[28:], math.Float64bits(c.OffsetZ))
	binary.LittleEndian.PutUint64(p[36:], math.Float64bits(c.ScaleX))
	binary.LittleEndian.PutUint64(p[44:], math.Float64bits(c.ScaleY))
	binary.LittleEndian.PutUint64(p[52:], math.Float64bits(c.ScaleZ))
	packets = append(packets, meta)

	// Grid chunks.
	for i := 0; i < dataChunks; i++ {
		start := i * MaxChunkPayload / 2 // sample index
		end := start + MaxChunkPayload/2
		if end > len(c.Raw) {
			end = len(c.Raw)
		}
		payload := (end - start) * 2
		pkt := make([]byte, ChunkHeaderSize+payload)
		putHeader(pkt, wireHeader{
			frameID:    c.FrameID,
			chunkIndex: uint16(i + 1),
			chunkCount: uint16(chunkCount),
			payloadLen: uint16(payload),
		})
		body := pkt[ChunkHeaderSize:]
		for j, v := range c.Raw[start:end] {
			binary.LittleEndian.PutUint16(body[j*2:], v)
		}
		packets = append(packets, pkt)
	}
	return packets, nil
}

// pendingFrame accumulates chunks for one frame ID until complete.
type pendingFrame struct {
	firstSeen  time.Time
	chunkCount int
	received   int
	meta       []byte
	chunks     map[int][]byte // grid chunks keyed by chunk index
}

// Decoder reassembles bridge datagrams into components. Chunks may arrive
// out of order; frames that stay incomplete longer than the expiry window
// are dropped the next time Expire runs. Decoder is not safe for concurrent
// use; the UDP listener owns it from a single goroutine.
type Decoder struct {
	pending map[uint32]*pendingFrame
	expiry  time.Duration
	now     func() time.Time
}

// DefaultFrameExpiry is how long an incomplete frame is kept before its
// chunks are discarded.
const DefaultFrameExpiry = 500 * time.Millisecond

// NewDecoder creates a decoder with the given incomplete-frame expiry.
// A non-positive expiry uses DefaultFrameExpiry.
func NewDecoder(expiry time.Duration) *Decoder {
	if expiry <= 0 {
		expiry = DefaultFrameExpiry
	}
	return &Decoder{
		pending: make(map[uint32]*pendingFrame),
		expiry:  expiry,
		now:     time.Now,
	}
}

// Add ingests one datagram. It returns a completed component when the
// datagram finishes a frame, or nil when more chunks are still expected.
func (d *Decoder) Add(packet []byte) (*Component, error) {
	h, err := parseHeader(packet)
	if err != nil {
		return nil, err
	}

	pf := d.pending[h.frameID]
	if pf == nil {
		pf = &pendingFrame{
			firstSeen:  d.now(),
			chunkCount: int(h.chunkCount),
			chunks:     make(map[int][]byte),
		}
		d.pending[h.frameID] = pf
	}
	if pf.chunkCount != int(h.chunkCount) {
		delete(d.pending, h.frameID)
		return nil, fmt.Errorf("frame %d: chunk count changed mid-frame (%d then %d)",
			h.frameID, pf.chunkCount, h.chunkCount)
	}

	payload := packet[ChunkHeaderSize:]
	if h.metadata {
		if h.chunkIndex != 0 {
			return nil, fmt.Errorf("frame %d: metadata flag on chunk %d", h.frameID, h.chunkIndex)
		}
		if len(payload) != MetadataSize {
			return nil, fmt.Errorf("frame %d: metadata block is %d bytes, want %d",
				h.frameID, len(payload), MetadataSize)
		}
		if pf.meta == nil {
			pf.meta = append([]byte(nil), payload...)
			pf.received++
		}
	} else {
		idx := int(h.chunkIndex)
		if _, dup := pf.chunks[idx]; !dup {
			pf.chunks[idx] = append([]byte(nil), payload...)
			pf.received++
		}
	}

	if pf.received < pf.chunkCount {
		return nil, nil
	}
	delete(d.pending, h.frameID)
	return assemble(h.frameID, pf)
}

// Expire drops incomplete frames older than the expiry window and returns
// how many were discarded. The listener calls this on its stats tick.
func (d *Decoder) Expire() int {
	cutoff := d.now().Add(-d.expiry)
	dropped := 0
	for id, pf := range d.pending {
		if pf.firstSeen.Before(cutoff) {
			delete(d.pending, id)
			dropped++
		}
	}
	return dropped
}

// PendingFrames returns the number of partially received frames.
func (d *Decoder) PendingFrames() int {
	return len(d.pending)
}

func assemble(frameID uint32, pf *pendingFrame) (*Component, error) {
	if pf.meta == nil {
		return nil, fmt.Errorf("frame %d: complete but missing metadata chunk", frameID)
	}
	m := pf.meta
	c := &Component{
		FrameID:  frameID,
		Width:    int(binary.LittleEndian.Uint16(m[0:])),
		Height:   int(binary.LittleEndian.Uint16(m[2:])),
		Captured: time.Unix(0, int64(binary.LittleEndian.Uint64(m[4:]))).UTC(),
		OffsetX:  math.Float64frombits(binary.LittleEndian.Uint64(m[12:])),
		OffsetY:  math.Float64frombits(binary.LittleEndian.Uint64(m[20:])),
		OffsetZ:  math.Float64frombits(binary.LittleEndian.Uint64(m[28:])),
		ScaleX:   math.Float64frombits(binary.LittleEndian.Uint64(m[36:])),
		ScaleY:   math.Float64frombits(binary.LittleEndian.Uint64(m[44:])),
		ScaleZ:   math.Float64frombits(binary.LittleEndian.Uint64(m[52:])),
	}

	var gridBytes []byte
	for i := 1; i < pf.chunkCount; i++ {
		chunk, ok := pf.chunks[i]
		if !ok {
			return nil, fmt.Errorf("frame %d: missing grid chunk %d", frameID, i)
		}
		gridBytes = append(gridBytes, chunk...)
	}
	if len(gridBytes) != c.Width*c.Height*2 {
		return nil, fmt.Errorf("frame %d: grid payload is %d bytes, want %d for %dx%d",
			frameID, len(gridBytes), c.Width*c.Height*2, c.Width, c.Height)
	}

	c.Raw = make([]uint16, c.Width*c.Height)
	for i := range c.Raw {
		c.Raw[i] = binary.LittleEndian.Uint16(gridBytes[i*2:])
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("frame %d: %w", frameID, err)
	}
	return c, nil
}
