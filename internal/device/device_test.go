package device

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"testing"

	"go.uber.org/zap"
)

// fakeConn records every transfer in order.
type fakeConn struct {
	writes [][]byte
	closed bool
	err    error
}

func (c *fakeConn) Write(p []byte) error {
	if c.err != nil {
		return c.err
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func findModel(t *testing.T, vid, pid uint16) model {
	t.Helper()
	for _, m := range models {
		if m.desc.VendorID == vid && m.desc.ProductID == pid {
			return m
		}
	}
	t.Fatalf("model %04x:%04x not in table", vid, pid)
	return model{}
}

func TestHeader5302(t *testing.T) {
	desc := findModel(t, 0x0416, 0x5302).desc
	h := header5302(desc, 320*240*2)

	if len(h) != 24 {
		t.Fatalf("header length = %d, want 24", len(h))
	}
	if !bytes.Equal(h[:4], []byte{0xda, 0xdb, 0xdc, 0xdd}) {
		t.Errorf("magic = % x", h[:4])
	}
	fields := []struct {
		off  int
		want uint16
	}{
		{4, 2}, {6, 1}, {8, 320}, {10, 240}, {12, 2}, {14, 0},
	}
	for _, f := range fields {
		if got := binary.LittleEndian.Uint16(h[f.off:]); got != f.want {
			t.Errorf("field at %d = %d, want %d", f.off, got, f.want)
		}
	}
	if got := binary.LittleEndian.Uint32(h[16:]); got != 153600 {
		t.Errorf("payload length = %d, want 153600", got)
	}
	if !bytes.Equal(h[20:], []byte{0, 0, 0, 0}) {
		t.Errorf("reserved tail = % x, want zeros", h[20:])
	}
}

func TestHeader5304(t *testing.T) {
	desc := findModel(t, 0x0418, 0x5304).desc
	h := header5304(desc, 480*480*2)

	want := []byte{0x69, 0x88, 0xe0, 0x01, 0xe0, 0x01, 0x00, 0x00}
	if !bytes.Equal(h, want) {
		t.Errorf("header = % x, want % x", h, want)
	}
}

func TestBulkHeader(t *testing.T) {
	m := findModel(t, 0x87ad, 0x70db)
	d := newBulk(m.desc, &fakeConn{}, zap.NewNop())
	h := d.Header(320 * 320 * 2)

	if len(h) != 64 {
		t.Fatalf("header length = %d, want 64", len(h))
	}
	if !bytes.Equal(h[:4], []byte{0x12, 0x34, 0x56, 0x78}) {
		t.Errorf("magic = % x", h[:4])
	}
	fields := []struct {
		off  int
		want uint32
	}{
		{0x04, 3}, {0x08, 320}, {0x0c, 320}, {0x38, 2}, {0x3c, 204800},
	}
	for _, f := range fields {
		if got := binary.LittleEndian.Uint32(h[f.off:]); got != f.want {
			t.Errorf("field at %#x = %d, want %d", f.off, got, f.want)
		}
	}
}

func TestColumnMajorEncoding(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255}) // top-left, pure red
	img.SetRGBA(0, 2, color.RGBA{B: 255, A: 255}) // bottom-left, pure blue

	out := encodeColumnMajorLE(img)
	if len(out) != 2*3*2 {
		t.Fatalf("payload length = %d, want 12", len(out))
	}

	// column 0 starts bottom-up: first word is the bottom-left pixel
	if got := binary.LittleEndian.Uint16(out[0:]); got != 0x001f {
		t.Errorf("first word = %#04x, want 0x001f (blue)", got)
	}
	// the top-left pixel is the last word of column 0 and therefore
	// replaced by the terminator
	if got := binary.LittleEndian.Uint16(out[4:]); got != 0 {
		t.Errorf("column 0 terminator = %#04x, want 0", got)
	}
	if got := binary.LittleEndian.Uint16(out[10:]); got != 0 {
		t.Errorf("column 1 terminator = %#04x, want 0", got)
	}
}

func TestRowMajorBigEndianEncoding(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 1, color.RGBA{G: 255, A: 255})

	out := encodeRowMajorBE(img)
	if len(out) != 8 {
		t.Fatalf("payload length = %d, want 8", len(out))
	}
	if got := binary.BigEndian.Uint16(out[0:]); got != 0xf800 {
		t.Errorf("first word = %#04x, want 0xf800 (red)", got)
	}
	if got := binary.BigEndian.Uint16(out[6:]); got != 0x07e0 {
		t.Errorf("last word = %#04x, want 0x07e0 (green)", got)
	}
}

func TestRGB565Quantization(t *testing.T) {
	colors := []color.RGBA{
		{R: 255, G: 255, B: 255, A: 255},
		{R: 0, G: 0, B: 0, A: 255},
		{R: 137, G: 42, B: 200, A: 255},
		{R: 1, G: 2, B: 3, A: 255},
	}
	img := image.NewRGBA(image.Rect(0, 0, len(colors), 1))
	for i, c := range colors {
		img.SetRGBA(i, 0, c)
	}
	for i, c := range colors {
		r, g, b := rgb565Components(rgb565(img, i, 0))
		if diff(r, c.R) > 8 || diff(g, c.G) > 4 || diff(b, c.B) > 8 {
			t.Errorf("color %v decoded to (%d,%d,%d), outside one quantization step", c, r, g, b)
		}
	}
}

func diff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestHIDPacketization(t *testing.T) {
	m := findModel(t, 0x0416, 0x5302)
	conn := &fakeConn{}
	d := newHID(m.desc, header5302, conn, zap.NewNop())

	img := testImage(m.desc.Width, m.desc.Height)
	payload := d.EncodeImage(img)
	header := d.Header(len(payload))
	packets := d.PreparePackets(header, payload)

	total := len(header) + len(payload)
	wantPackets := (total + m.desc.ChunkSize - 1) / m.desc.ChunkSize
	if len(packets) != wantPackets {
		t.Fatalf("packet count = %d, want %d", len(packets), wantPackets)
	}
	var joined []byte
	for i, p := range packets {
		if len(p) != m.desc.ChunkSize {
			t.Fatalf("packet %d length = %d, want %d", i, len(p), m.desc.ChunkSize)
		}
		joined = append(joined, p...)
	}
	if !bytes.Equal(joined[:total], append(append([]byte{}, header...), payload...)) {
		t.Error("reassembled packets do not reproduce header+payload")
	}
	for _, b := range joined[total:] {
		if b != 0 {
			t.Error("padding after payload is not zeroed")
			break
		}
	}

	// the report id goes on at send time, not in the prepared packets
	if err := d.SendPacket(packets[0]); err != nil {
		t.Fatal(err)
	}
	sent := conn.writes[0]
	if len(sent) != m.desc.ChunkSize+1 || sent[0] != hidReportID {
		t.Errorf("sent packet length %d first byte %#02x, want %d-byte report id prefix",
			len(sent), sent[0], m.desc.ChunkSize+1)
	}
	if !bytes.Equal(sent[1:], packets[0]) {
		t.Error("report body differs from prepared packet")
	}
}

func TestBulkFraming(t *testing.T) {
	m := findModel(t, 0x87ad, 0x70db)
	conn := &fakeConn{}
	d := newBulk(m.desc, conn, zap.NewNop())

	img := testImage(m.desc.Width, m.desc.Height)
	payload := d.EncodeImage(img)
	if len(payload) != 204800 {
		t.Fatalf("payload length = %d, want 204800", len(payload))
	}
	packets := d.PreparePackets(d.Header(len(payload)), payload)

	// one header transfer plus 400 full chunks
	if len(packets) != 1+400 {
		t.Fatalf("packet count = %d, want 401", len(packets))
	}
	if len(packets[0]) != 64 {
		t.Errorf("first transfer length = %d, want 64", len(packets[0]))
	}
	for _, p := range packets {
		if err := d.SendPacket(p); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.FrameEnd(); err != nil {
		t.Fatal(err)
	}
	last := conn.writes[len(conn.writes)-1]
	if len(last) != 0 {
		t.Errorf("frame not closed by zero-length packet, got %d bytes", len(last))
	}
}

func TestBulkCloseSendsEndOfStream(t *testing.T) {
	m := findModel(t, 0x87ad, 0x70db)
	conn := &fakeConn{}
	d := newBulk(m.desc, conn, zap.NewNop())

	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
	if !conn.closed {
		t.Error("transport not released")
	}
	if len(conn.writes) != 2 {
		t.Fatalf("writes = %d, want end-of-stream header plus terminator", len(conn.writes))
	}
	h := conn.writes[0]
	if len(h) != 64 || binary.LittleEndian.Uint32(h[0x3c:]) != 0 {
		t.Errorf("end-of-stream header = % x", h)
	}
	if len(conn.writes[1]) != 0 {
		t.Error("end-of-stream not terminated by zero-length packet")
	}
}
