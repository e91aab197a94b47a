package device

import (
	"fmt"
	"sort"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// usbConn is one claimed OUT endpoint plus everything that has to be
// released with it.
type usbConn struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	cfg  *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint
}

// openTransport opens the panel at vid:pid and claims its first OUT
// endpoint of the wanted class and transfer type. It distinguishes
// "not attached" from "attached but unclaimable" so discovery can keep
// probing other models.
func openTransport(vid, pid uint16, class gousb.Class, xfer gousb.TransferType, log *zap.Logger) (*usbConn, error) {
	ctx := gousb.NewContext()
	dev, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: open %04x:%04x: %v", ErrClaim, vid, pid, err)
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("%w: %04x:%04x", ErrNotFound, vid, pid)
	}
	if err := dev.SetAutoDetach(true); err != nil {
		log.Debug("auto-detach unsupported", zap.Error(err))
	}

	conn, err := claimOut(ctx, dev, class, xfer)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("%w: %04x:%04x: %v", ErrClaim, vid, pid, err)
	}
	log.Debug("endpoint claimed",
		zap.String("device", fmt.Sprintf("%04x:%04x", vid, pid)),
		zap.Stringer("endpoint", conn.out))
	return conn, nil
}

func claimOut(ctx *gousb.Context, dev *gousb.Device, class gousb.Class, xfer gousb.TransferType) (*usbConn, error) {
	num, err := dev.ActiveConfigNum()
	if err != nil {
		return nil, fmt.Errorf("active config: %w", err)
	}
	cfg, err := dev.Config(num)
	if err != nil {
		return nil, fmt.Errorf("claim config %d: %w", num, err)
	}

	for _, ifDesc := range cfg.Desc.Interfaces {
		for _, alt := range ifDesc.AltSettings {
			if alt.Class != class {
				continue
			}
			ep, ok := outEndpoint(alt, xfer)
			if !ok {
				continue
			}
			intf, err := cfg.Interface(ifDesc.Number, alt.Number)
			if err != nil {
				cfg.Close()
				return nil, fmt.Errorf("claim interface %d: %w", ifDesc.Number, err)
			}
			out, err := intf.OutEndpoint(ep.Number)
			if err != nil {
				intf.Close()
				cfg.Close()
				return nil, fmt.Errorf("endpoint %d: %w", ep.Number, err)
			}
			return &usbConn{ctx: ctx, dev: dev, cfg: cfg, intf: intf, out: out}, nil
		}
	}
	cfg.Close()
	return nil, fmt.Errorf("no OUT endpoint of class %s", class)
}

// outEndpoint picks the lowest-numbered OUT endpoint of the wanted
// transfer type, for a stable choice across enumerations.
func outEndpoint(alt gousb.InterfaceSetting, xfer gousb.TransferType) (gousb.EndpointDesc, bool) {
	var found []gousb.EndpointDesc
	for _, ep := range alt.Endpoints {
		if ep.Direction == gousb.EndpointDirectionOut && ep.TransferType == xfer {
			found = append(found, ep)
		}
	}
	if len(found) == 0 {
		return gousb.EndpointDesc{}, false
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Number < found[j].Number })
	return found[0], true
}

func (c *usbConn) Write(p []byte) error {
	n, err := c.out.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(p))
	}
	return nil
}

func (c *usbConn) Close() error {
	c.intf.Close()
	c.cfg.Close()
	err := c.dev.Close()
	c.ctx.Close()
	return err
}
