package device

import (
	"encoding/binary"
	"fmt"
	"image"

	"go.uber.org/zap"
)

// hidReportID prefixes every HID interrupt transfer.
const hidReportID = 0x00

// hidDevice is the HID panel family: column-major little-endian pixel
// data, header and payload concatenated then sliced into fixed chunks,
// one chunk per interrupt transfer.
type hidDevice struct {
	desc   Descriptor
	conn   transport
	header func(d Descriptor, payloadLen int) []byte
	log    *zap.Logger
}

func newHID(desc Descriptor, header func(Descriptor, int) []byte, conn transport, log *zap.Logger) *hidDevice {
	return &hidDevice{desc: desc, conn: conn, header: header, log: log}
}

func (d *hidDevice) Descriptor() Descriptor { return d.desc }

func (d *hidDevice) EncodeImage(img image.Image) []byte {
	return encodeColumnMajorLE(img)
}

func (d *hidDevice) Header(payloadLen int) []byte {
	return d.header(d.desc, payloadLen)
}

func (d *hidDevice) PreparePackets(header, payload []byte) [][]byte {
	frame := make([]byte, 0, len(header)+len(payload))
	frame = append(frame, header...)
	frame = append(frame, payload...)
	return chunk(frame, d.desc.ChunkSize)
}

func (d *hidDevice) SendPacket(p []byte) error {
	report := make([]byte, 1+len(p))
	report[0] = hidReportID
	copy(report[1:], p)
	if err := d.conn.Write(report); err != nil {
		return fmt.Errorf("%w: interrupt transfer: %v", ErrProtocol, err)
	}
	return nil
}

func (d *hidDevice) FrameEnd() error { return nil }

func (d *hidDevice) Close() error { return d.conn.Close() }

// header5302 is the 24-byte frame header of the 0416:5302 model:
// 4 magic bytes, six 16-bit fields, the 32-bit payload length and a
// reserved tail, all little-endian after the magic.
func header5302(desc Descriptor, payloadLen int) []byte {
	h := make([]byte, 24)
	h[0], h[1], h[2], h[3] = 0xda, 0xdb, 0xdc, 0xdd
	binary.LittleEndian.PutUint16(h[4:], 2)
	binary.LittleEndian.PutUint16(h[6:], 1)
	binary.LittleEndian.PutUint16(h[8:], uint16(desc.Width))
	binary.LittleEndian.PutUint16(h[10:], uint16(desc.Height))
	binary.LittleEndian.PutUint16(h[12:], 2)
	binary.LittleEndian.PutUint16(h[14:], 0)
	binary.LittleEndian.PutUint32(h[16:], uint32(payloadLen))
	// h[20:24] reserved, zero
	return h
}

// header5304 is the 8-byte frame header of the 0418:5304 model.
func header5304(desc Descriptor, _ int) []byte {
	h := make([]byte, 8)
	h[0], h[1] = 0x69, 0x88
	binary.LittleEndian.PutUint16(h[2:], uint16(desc.Width))
	binary.LittleEndian.PutUint16(h[4:], uint16(desc.Height))
	binary.LittleEndian.PutUint16(h[6:], 0)
	return h
}
