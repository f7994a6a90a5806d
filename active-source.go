package main

import (
	"sync"
	"time"

	"github.com/RobertMe/gocec"
	"github.com/RobertMe/onoff2mqtt/messages"
	"github.com/RobertMe/onoff2mqtt/onoff"
)

func init() {
	RegisterInitializer(0, InitActiveSourceBridge)
}

type ActiveSourceBridge struct {
	mqtt    statePublisher
	metrics *Metrics
	monitor *Monitor

	mux          sync.Mutex
	activeSource *Device
}

func NewActiveSourceBridge(mqtt statePublisher, metrics *Metrics) *ActiveSourceBridge {
	return &ActiveSourceBridge{
		mqtt:    mqtt,
		metrics: metrics,
	}
}

func InitActiveSourceBridge(container *Container) {
	cec := MustResolve[*Cec](container, "cec")
	devices := MustResolve[*DeviceRegistry](container, "devices")

	bridge := NewActiveSourceBridge(MustResolve[*Mqtt](container, "mqtt"), MustResolve[*Metrics](container, "metrics"))

	bridge.monitor = CreateMonitor(
		func() {},
		func() {
			bridge.UpdateActiveSource(devices.FindByLogicalAddress(cec.ActiveSource()))
		},
		10*time.Minute,
		10*time.Second,
		1*time.Minute,
	)

	if haBridge, ok := Resolve[*HomeAssistantBridge](container, "home-assistant"); ok {
		devices.RegisterDeviceAddedHandler(func(device *Device) {
			haBridge.RegisterBinarySensor(device, messages.PropertyIsActiveSource)
		})
	}

	cec.RegisterMessageHandler(func(message gocec.Message) {
		bridge.monitor.Reset()
	}, gocec.OpcodeActiveSource, gocec.OpcodeSetStreamPath, gocec.OpcodeReportPowerStatus)

	cec.RegisterMessageHandler(func(message gocec.Message) {
		if message.Source() == gocec.DeviceTV {
			bridge.UpdateActiveSource(nil)
		}
	}, gocec.OpcodeStandby)

	container.Register("active-source", bridge)
}

// UpdateActiveSource publishes a change of active source. A nil device means no device is active.
func (bridge *ActiveSourceBridge) UpdateActiveSource(newSource *Device) {
	bridge.mux.Lock()
	defer bridge.mux.Unlock()

	if newSource == bridge.activeSource {
		return
	}

	if bridge.activeSource != nil {
		bridge.publish(bridge.activeSource, onoff.Off)
	}

	if newSource != nil {
		bridge.publish(newSource, onoff.On)
	}

	bridge.activeSource = newSource
}

// Stop ends the active source polling.
func (bridge *ActiveSourceBridge) Stop() {
	if bridge.monitor != nil {
		bridge.monitor.Stop()
	}
}

func (bridge *ActiveSourceBridge) ActiveSource() *Device {
	bridge.mux.Lock()
	defer bridge.mux.Unlock()
	return bridge.activeSource
}

func (bridge *ActiveSourceBridge) publish(device *Device, state onoff.State) {
	bridge.metrics.SetActiveSource(device, state)
	bridge.mqtt.PublishMessage(messages.NewActiveSourceMessage(device.Id, state))
}
