//go:build linux

package ble

import (
	"fmt"
	"log"

	"tinygo.org/x/bluetooth"

	"github.com/sweeney/kepler-watch/internal/profile"
)

const updateQueue = 16

// Server is the watch's GATT peripheral on the host's BlueZ adapter.
type Server struct {
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
	mirror  *mirror
}

// Start enables the adapter, registers the clock and notification services
// backed by table, and starts advertising as name.
func Start(name string, table *profile.Table, onConn ConnectionFunc) (*Server, error) {
	a := bluetooth.DefaultAdapter
	if err := a.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}

	a.SetConnectHandler(func(d bluetooth.Device, connected bool) {
		if onConn != nil {
			onConn(connected, d.Address.String())
		}
	})

	handles := make(map[profile.Char]valueWriter)
	var uuids []bluetooth.UUID
	for _, svc := range Layout() {
		su, err := bluetooth.ParseUUID(svc.UUID)
		if err != nil {
			return nil, fmt.Errorf("service %s uuid: %w", svc.Service, err)
		}

		chars := make([]bluetooth.CharacteristicConfig, 0, len(svc.Chars))
		for _, cl := range svc.Chars {
			cu, err := bluetooth.ParseUUID(cl.UUID)
			if err != nil {
				return nil, fmt.Errorf("characteristic %s uuid: %w", cl.Char, err)
			}
			initial, err := table.Get(cl.Char)
			if err != nil {
				return nil, err
			}

			h := new(bluetooth.Characteristic)
			flags := bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission
			if cl.Readable {
				flags |= bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission
				handles[cl.Char] = h
			}
			c := cl.Char
			chars = append(chars, bluetooth.CharacteristicConfig{
				Handle: h,
				UUID:   cu,
				Value:  initial,
				Flags:  flags,
				WriteEvent: func(_ bluetooth.Connection, offset int, value []byte) {
					if offset != 0 {
						log.Printf("ble: %s: offset write %d not supported", c, offset)
						return
					}
					if err := table.Write(c, value); err != nil {
						log.Printf("ble: write rejected: %v", err)
					}
				},
			})
		}

		if err := a.AddService(&bluetooth.Service{UUID: su, Characteristics: chars}); err != nil {
			return nil, fmt.Errorf("add %s service: %w", svc.Service, err)
		}
		uuids = append(uuids, su)
	}

	m := newMirror(handles, updateQueue)
	table.Observe(m.observe)
	go m.run()

	adv := a.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: uuids,
	}); err != nil {
		m.stop()
		return nil, fmt.Errorf("configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		m.stop()
		return nil, fmt.Errorf("start advertisement: %w", err)
	}
	log.Printf("ble: advertising as %q", name)

	return &Server{adapter: a, adv: adv, mirror: m}, nil
}

// Close stops advertising and mirroring.
func (s *Server) Close() error {
	s.mirror.stop()
	if err := s.adv.Stop(); err != nil {
		return fmt.Errorf("stop advertisement: %w", err)
	}
	return nil
}
