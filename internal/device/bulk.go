package device

import (
	"encoding/binary"
	"fmt"
	"image"

	"go.uber.org/zap"
)

// bulkDevice is the bulk USB panel family: row-major big-endian pixel
// data, a standalone 64-byte header transfer, fixed payload chunks and
// a zero-length packet closing every frame. Support for this family is
// based on partial captures; the header constants are the observed
// values, not a documented contract.
type bulkDevice struct {
	desc Descriptor
	conn transport
	log  *zap.Logger
}

func newBulk(desc Descriptor, conn transport, log *zap.Logger) *bulkDevice {
	return &bulkDevice{desc: desc, conn: conn, log: log}
}

func (d *bulkDevice) Descriptor() Descriptor { return d.desc }

func (d *bulkDevice) EncodeImage(img image.Image) []byte {
	return encodeRowMajorBE(img)
}

// Header builds the 64-byte bulk frame header. A zero payloadLen marks
// end of stream.
func (d *bulkDevice) Header(payloadLen int) []byte {
	h := make([]byte, 64)
	h[0], h[1], h[2], h[3] = 0x12, 0x34, 0x56, 0x78
	binary.LittleEndian.PutUint32(h[0x04:], 3)
	binary.LittleEndian.PutUint32(h[0x08:], uint32(d.desc.Width))
	binary.LittleEndian.PutUint32(h[0x0c:], uint32(d.desc.Height))
	binary.LittleEndian.PutUint32(h[0x38:], 2)
	binary.LittleEndian.PutUint32(h[0x3c:], uint32(payloadLen))
	return h
}

// PreparePackets emits the header as its own transfer followed by the
// payload in fixed-size chunks. The closing zero-length packet is
// FrameEnd's job.
func (d *bulkDevice) PreparePackets(header, payload []byte) [][]byte {
	packets := make([][]byte, 0, 1+(len(payload)+d.desc.ChunkSize-1)/d.desc.ChunkSize)
	packets = append(packets, header)
	packets = append(packets, chunk(payload, d.desc.ChunkSize)...)
	return packets
}

func (d *bulkDevice) SendPacket(p []byte) error {
	if err := d.conn.Write(p); err != nil {
		return fmt.Errorf("%w: bulk transfer: %v", ErrProtocol, err)
	}
	return nil
}

// FrameEnd sends the zero-length packet that tells the panel the frame
// is complete.
func (d *bulkDevice) FrameEnd() error {
	if err := d.conn.Write(nil); err != nil {
		return fmt.Errorf("%w: frame terminator: %v", ErrProtocol, err)
	}
	return nil
}

// Close signals end of stream with a zero-payload header so the panel
// leaves streaming mode, then releases the pipe.
func (d *bulkDevice) Close() error {
	if err := d.conn.Write(d.Header(0)); err != nil {
		d.log.Warn("end-of-stream header failed", zap.Error(err))
	} else if err := d.conn.Write(nil); err != nil {
		d.log.Warn("end-of-stream terminator failed", zap.Error(err))
	}
	return d.conn.Close()
}
