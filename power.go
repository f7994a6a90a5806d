package main

import (
	"sync"
	"time"

	"github.com/RobertMe/gocec"
	"github.com/RobertMe/onoff2mqtt/messages"
	"github.com/RobertMe/onoff2mqtt/onoff"
	log "github.com/sirupsen/logrus"
)

func init() {
	RegisterInitializer(0, InitPowerBridge)
}

type powerBus interface {
	Transmit(message gocec.Message)
	PowerStatus(address gocec.LogicalAddress) gocec.PowerStatus
	PowerOn(address gocec.LogicalAddress)
	StandBy(address gocec.LogicalAddress)
}

type statePublisher interface {
	PublishMessage(message messages.Message)
	Format() onoff.Format
}

type PowerBridge struct {
	cec     powerBus
	mqtt    statePublisher
	metrics *Metrics

	unknownAs *onoff.State

	monitors      map[string]*Monitor
	monitorsMutex sync.Mutex

	// Devices without an entry have no known power state yet.
	states      map[string]onoff.State
	statesMutex sync.Mutex
}

func NewPowerBridge(cec powerBus, mqtt statePublisher, metrics *Metrics, config PowerConfig) *PowerBridge {
	return &PowerBridge{
		cec:       cec,
		mqtt:      mqtt,
		metrics:   metrics,
		unknownAs: config.UnknownAs,
		monitors:  make(map[string]*Monitor),
		states:    make(map[string]onoff.State),
	}
}

func InitPowerBridge(container *Container) {
	cec := MustResolve[*Cec](container, "cec")
	mqtt := MustResolve[*Mqtt](container, "mqtt")
	config := MustResolve[*Config](container, "config")
	devices := MustResolve[*DeviceRegistry](container, "devices")

	bridge := NewPowerBridge(cec, mqtt, MustResolve[*Metrics](container, "metrics"), config.Power)
	container.Register("bridge.power", bridge)

	devices.RegisterDeviceAddedHandler(func(device *Device) {
		bridge.monitorsMutex.Lock()
		defer bridge.monitorsMutex.Unlock()
		bridge.monitors[device.Id] = CreateMonitor(
			bridge.createStarter(device),
			bridge.createRunner(device),
			5*time.Minute,
			5*time.Second,
			time.Minute,
		)
	})

	if config.Power.Control == onoff.On {
		devices.RegisterDeviceAddedHandler(func(device *Device) {
			topic := mqtt.BuildCommandTopic(device, messages.PropertyPower)
			err := mqtt.Subscribe(topic, func(payload []byte) {
				bridge.HandleCommand(device, payload)
			})
			if err != nil {
				log.WithFields(log.Fields{
					"device.id": device.Id,
					"error":     err,
				}).Error("Failed to subscribe to power commands")
			}
		})
	}

	if haBridge, ok := Resolve[*HomeAssistantBridge](container, "home-assistant"); ok {
		devices.RegisterDeviceAddedHandler(func(device *Device) {
			if config.Power.Control == onoff.On {
				haBridge.RegisterSwitch(device, messages.PropertyPower)
			} else {
				haBridge.RegisterBinarySensor(device, messages.PropertyPower)
			}
		})
	}

	cec.RegisterMessageHandler(func(message gocec.Message) {
		if device := devices.FindByLogicalAddress(message.Source()); device != nil && len(message) > 2 {
			bridge.SetPowerStatus(device, gocec.PowerStatus(message[2]))
		}
	}, gocec.OpcodeReportPowerStatus)

	cec.RegisterMessageHandler(func(message gocec.Message) {
		if device := devices.FindByLogicalAddress(message.Source()); device != nil {
			bridge.MonitorPower(device.Id)
		}
	}, gocec.OpcodeSetSystemAudioMode)

	cec.RegisterMessageHandler(func(message gocec.Message) {
		for _, device := range devices.Announced() {
			bridge.MonitorPower(device.Id)
		}
	}, gocec.OpcodeStandby, gocec.OpcodeActiveSource)
}

// MonitorPower switches the device's power polling to the fast interval.
func (bridge *PowerBridge) MonitorPower(deviceId string) {
	bridge.monitorsMutex.Lock()
	monitor, ok := bridge.monitors[deviceId]
	bridge.monitorsMutex.Unlock()

	if ok {
		monitor.Reset()
	}
}

// Stop ends the power polling of every device.
func (bridge *PowerBridge) Stop() {
	bridge.monitorsMutex.Lock()
	defer bridge.monitorsMutex.Unlock()
	for _, monitor := range bridge.monitors {
		monitor.Stop()
	}
}

// State returns the last published power state of a device.
func (bridge *PowerBridge) State(deviceId string) (onoff.State, bool) {
	bridge.statesMutex.Lock()
	defer bridge.statesMutex.Unlock()
	state, ok := bridge.states[deviceId]
	return state, ok
}

func powerStatusToState(status gocec.PowerStatus) (onoff.State, bool) {
	switch status {
	case gocec.PowerStatusOn, gocec.PowerStatusTransitionToStandby:
		return onoff.On, true
	case gocec.PowerStatusStandBy, gocec.PowerStatusTransitionToOn:
		return onoff.Off, true
	}
	return onoff.Off, false
}

func (bridge *PowerBridge) SetPowerStatus(device *Device, status gocec.PowerStatus) {
	state, ok := powerStatusToState(status)
	if !ok {
		bridge.metrics.UnknownCode("cec")
		if bridge.unknownAs == nil {
			log.WithFields(log.Fields{
				"device.id": device.Id,
				"status":    status,
			}).Debug("Power status has no on/off state, skipping")
			return
		}
		state = *bridge.unknownAs
	}

	// Publishing under the lock keeps the retained message in the order of the state updates.
	bridge.statesMutex.Lock()
	defer bridge.statesMutex.Unlock()
	if current, known := bridge.states[device.Id]; known && current == state {
		return
	}
	bridge.states[device.Id] = state

	log.WithFields(log.Fields{
		"device.id": device.Id,
		"state":     state,
	}).Debug("Power state changed")

	bridge.metrics.SetPowerState(device, state)
	bridge.mqtt.PublishMessage(messages.NewPowerMessage(device.Id, state))
}

// HandleCommand switches a device according to a payload received on its power command topic.
// Payloads that do not decode to a state are dropped.
func (bridge *PowerBridge) HandleCommand(device *Device, payload []byte) {
	state, err := bridge.mqtt.Format().Decode(string(payload))
	if err != nil {
		bridge.metrics.UnknownCode("command")
		log.WithFields(log.Fields{
			"device.id": device.Id,
			"payload":   string(payload),
			"error":     err,
		}).Warn("Ignoring power command")
		return
	}

	log.WithFields(log.Fields{
		"device.id": device.Id,
		"state":     state,
	}).Info("Switching device power")

	if state == onoff.On {
		bridge.cec.PowerOn(device.LogicalAddress)
	} else {
		bridge.cec.StandBy(device.LogicalAddress)
	}

	bridge.MonitorPower(device.Id)
}

func (bridge *PowerBridge) createStarter(device *Device) Starter {
	source := gocec.DeviceTV
	if device.LogicalAddress == gocec.DeviceTV {
		source = gocec.DeviceUnregistered
	}

	message := gocec.Message{cecHeader(source, device.LogicalAddress), byte(gocec.OpcodeGiveDevicePowerStatus)}

	return func() {
		bridge.cec.Transmit(message)
	}
}

func (bridge *PowerBridge) createRunner(device *Device) Runner {
	return func() {
		bridge.SetPowerStatus(device, bridge.cec.PowerStatus(device.LogicalAddress))
	}
}
