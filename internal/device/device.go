package device

import (
	"errors"
	"fmt"
	"image"
)

// Discovery and transfer failures. Wrapped errors carry the VID:PID
// and the underlying USB error.
var (
	ErrNotFound = errors.New("device not found")
	ErrClaim    = errors.New("device claim failed")
	ErrProtocol = errors.New("protocol failure")
)

// Descriptor identifies one supported panel model and its geometry.
type Descriptor struct {
	VendorID  uint16
	ProductID uint16
	Width     int
	Height    int
	ChunkSize int
	Name      string
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%04x:%04x, %dx%d)", d.Name, d.VendorID, d.ProductID, d.Width, d.Height)
}

// Device is the protocol surface for one opened panel. Implementations
// own the header format, the pixel traversal order and the packet
// framing of their family; the run loop drives them uniformly.
type Device interface {
	Descriptor() Descriptor

	// EncodeImage converts one composed frame to the family's RGB565
	// wire layout. The image must match the descriptor resolution.
	EncodeImage(img image.Image) []byte

	// Header builds the frame header for a payload of the given size.
	Header(payloadLen int) []byte

	// PreparePackets splits a frame into the exact transfers to issue,
	// in order. Packets carry no transport framing; SendPacket adds
	// whatever the transport requires.
	PreparePackets(header, payload []byte) [][]byte

	SendPacket(p []byte) error

	// FrameEnd is called after the last packet of a frame.
	FrameEnd() error

	Close() error
}

// transport is one opened USB pipe. Separate from Device so protocol
// logic is testable without hardware.
type transport interface {
	Write(p []byte) error
	Close() error
}

// chunk splits data into size-byte packets, zero-padding the last one
// so every transfer is exactly size bytes.
func chunk(data []byte, size int) [][]byte {
	n := (len(data) + size - 1) / size
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		p := make([]byte, size)
		end := (i + 1) * size
		if end > len(data) {
			end = len(data)
		}
		copy(p, data[i*size:end])
		out = append(out, p)
	}
	return out
}
