package device

import (
	"errors"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// model binds one descriptor to the opener for its protocol family.
type model struct {
	desc Descriptor
	open func(m model, log *zap.Logger) (Device, error)
}

// models is the supported panel table, probed in order.
var models = []model{
	{
		desc: Descriptor{VendorID: 0x0416, ProductID: 0x5302, Width: 320, Height: 240, ChunkSize: 512, Name: "hid-320x240"},
		open: openHIDModel(header5302),
	},
	{
		desc: Descriptor{VendorID: 0x0418, ProductID: 0x5304, Width: 480, Height: 480, ChunkSize: 512, Name: "hid-480x480"},
		open: openHIDModel(header5304),
	},
	{
		desc: Descriptor{VendorID: 0x87ad, ProductID: 0x70db, Width: 320, Height: 320, ChunkSize: 512, Name: "bulk-320x320"},
		open: openBulkModel,
	},
}

func openHIDModel(header func(Descriptor, int) []byte) func(model, *zap.Logger) (Device, error) {
	return func(m model, log *zap.Logger) (Device, error) {
		conn, err := openTransport(m.desc.VendorID, m.desc.ProductID,
			gousb.ClassHID, gousb.TransferTypeInterrupt, log)
		if err != nil {
			return nil, err
		}
		return newHID(m.desc, header, conn, log), nil
	}
}

func openBulkModel(m model, log *zap.Logger) (Device, error) {
	conn, err := openTransport(m.desc.VendorID, m.desc.ProductID,
		gousb.ClassVendorSpec, gousb.TransferTypeBulk, log)
	if err != nil {
		return nil, err
	}
	return newBulk(m.desc, conn, log), nil
}

// Discover probes every supported model and opens the first one
// attached. A present-but-unclaimable panel aborts discovery with the
// claim error rather than silently trying the next model.
func Discover(log *zap.Logger) (Device, error) {
	for _, m := range models {
		dev, err := m.open(m, log)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Info("panel found", zap.String("device", dev.Descriptor().String()))
		return dev, nil
	}
	return nil, ErrNotFound
}
