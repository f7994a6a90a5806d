package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/RobertMe/gocec"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const devicesFile = "devices.yaml"

type DeviceAddedHandler func(device *Device)

// NameLookup asks the bus for the OSD name of a device. An empty name means none was reported.
type NameLookup func(address gocec.LogicalAddress) string

type Device struct {
	Id             string               `yaml:"id"`
	Name           string               `yaml:"name"`
	LogicalAddress gocec.LogicalAddress `yaml:"-"`
	Address        int                  `yaml:"logical_address"`

	announced bool
}

type DeviceRegistry struct {
	mux       sync.RWMutex
	devices   []*Device
	byAddress map[gocec.LogicalAddress]*Device

	handlersMux   sync.Mutex
	addedHandlers []DeviceAddedHandler

	nameLookup NameLookup
}

// NewDeviceRegistry loads the known devices from the data dir. A missing or broken file starts an
// empty registry.
func NewDeviceRegistry(dataDir string) *DeviceRegistry {
	registry := &DeviceRegistry{
		byAddress: make(map[gocec.LogicalAddress]*Device),
	}

	devices, err := loadDevices(filepath.Join(dataDir, devicesFile))
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Could not load known devices, starting without")
	}

	for _, device := range devices {
		device.LogicalAddress = gocec.LogicalAddress(device.Address)
		registry.devices = append(registry.devices, device)
		registry.byAddress[device.LogicalAddress] = device
	}

	return registry
}

func loadDevices(path string) ([]*Device, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var devices []*Device
	if err = yaml.Unmarshal(data, &devices); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return devices, nil
}

// SetNameLookup sets how new devices get their name. Devices loaded from disk keep their stored name.
func (registry *DeviceRegistry) SetNameLookup(lookup NameLookup) {
	registry.mux.Lock()
	defer registry.mux.Unlock()
	registry.nameLookup = lookup
}

func (registry *DeviceRegistry) RegisterDeviceAddedHandler(handler DeviceAddedHandler) {
	registry.handlersMux.Lock()
	defer registry.handlersMux.Unlock()
	registry.addedHandlers = append(registry.addedHandlers, handler)
}

// Announce marks the device at address as present on the bus, creating it when the address was never
// seen before. The added handlers run the first time a device is announced.
func (registry *DeviceRegistry) Announce(address gocec.LogicalAddress) *Device {
	if address == gocec.DeviceBroadcast || address == gocec.DeviceUnknown {
		return nil
	}

	registry.mux.RLock()
	_, known := registry.byAddress[address]
	lookup := registry.nameLookup
	registry.mux.RUnlock()

	name := ""
	if !known && lookup != nil {
		name = lookup(address)
	}
	if name == "" {
		name = fmt.Sprintf("device_%d", int(address))
	}

	registry.mux.Lock()
	device, ok := registry.byAddress[address]
	if !ok {
		device = &Device{
			Id:             uuid.New().String(),
			Name:           name,
			LogicalAddress: address,
			Address:        int(address),
		}
		registry.devices = append(registry.devices, device)
		registry.byAddress[address] = device

		log.WithFields(log.Fields{
			"device.id": device.Id,
			"address":   int(address),
			"name":      device.Name,
		}).Info("Found new device")
	}

	isNew := !device.announced
	device.announced = true
	registry.mux.Unlock()

	if isNew {
		registry.handlersMux.Lock()
		handlers := append([]DeviceAddedHandler(nil), registry.addedHandlers...)
		registry.handlersMux.Unlock()

		for _, handler := range handlers {
			handler(device)
		}
	}

	return device
}

func (registry *DeviceRegistry) FindByLogicalAddress(address gocec.LogicalAddress) *Device {
	registry.mux.RLock()
	defer registry.mux.RUnlock()
	return registry.byAddress[address]
}

func (registry *DeviceRegistry) FindById(id string) *Device {
	registry.mux.RLock()
	defer registry.mux.RUnlock()
	for _, device := range registry.devices {
		if device.Id == id {
			return device
		}
	}
	return nil
}

// Announced returns the devices seen on the bus since startup.
func (registry *DeviceRegistry) Announced() []*Device {
	registry.mux.RLock()
	defer registry.mux.RUnlock()
	devices := make([]*Device, 0, len(registry.devices))
	for _, device := range registry.devices {
		if device.announced {
			devices = append(devices, device)
		}
	}
	return devices
}

func (registry *DeviceRegistry) Save(dataDir string) error {
	registry.mux.RLock()
	data, err := yaml.Marshal(registry.devices)
	registry.mux.RUnlock()
	if err != nil {
		return errors.Wrap(err, "encode devices")
	}

	return errors.Wrap(os.WriteFile(filepath.Join(dataDir, devicesFile), data, 0644), "write devices")
}
