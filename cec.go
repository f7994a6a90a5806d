package main

import (
	"strings"
	"sync"

	"github.com/RobertMe/gocec"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type MessageReceivedHandler func(message gocec.Message)

type Cec struct {
	connection *gocec.Connection
	adapter    gocec.Adapter
	devices    *DeviceRegistry

	LibCecLoggingEnabled bool

	handlersMux             sync.RWMutex
	messageReceivedHandlers map[gocec.Opcode][]MessageReceivedHandler
}

func InitialiseCec(devices *DeviceRegistry, path string) (*Cec, error) {
	config := gocec.NewConfiguration("onoff2mqtt", false)
	config.SetMonitorOnly(false)

	cec := &Cec{
		devices:                 devices,
		messageReceivedHandlers: make(map[gocec.Opcode][]MessageReceivedHandler),
	}
	config.SetLogCallback(cec.handleLogMessage)

	connection, err := gocec.NewConnection(config)
	if err != nil {
		return nil, errors.Wrap(err, "open libcec")
	}

	adapters := connection.FindAdapters()
	if len(adapters) == 0 {
		return nil, errors.New("no CEC adapters found")
	}

	adapter := adapters[0]
	if len(path) != 0 {
		var found bool
		for _, candidate := range adapters {
			if candidate.Path == path {
				adapter = candidate
				found = true
				break
			}
		}

		if !found {
			return nil, errors.Errorf("CEC adapter %s not found", path)
		}
	}

	cec.connection = connection
	cec.adapter = adapter
	devices.SetNameLookup(cec.OSDName)

	return cec, nil
}

func (cec *Cec) RegisterMessageHandler(handler MessageReceivedHandler, opcodes ...gocec.Opcode) {
	cec.handlersMux.Lock()
	defer cec.handlersMux.Unlock()
	for _, opcode := range opcodes {
		cec.messageReceivedHandlers[opcode] = append(cec.messageReceivedHandlers[opcode], handler)
	}
}

func (cec *Cec) Start() {
	cec.connection.Open(cec.adapter)

	for _, address := range cec.connection.ActiveDevices() {
		cec.devices.Announce(address)
	}
}

func (cec *Cec) handleLogMessage(logMessage *gocec.LogMessage) {
	if logMessage.Level != gocec.LogLevelTraffic {
		if cec.LibCecLoggingEnabled {
			log.WithField("level", logMessage.Level).Debug(logMessage.Message)
		}
		return
	}

	if !strings.HasPrefix(logMessage.Message, ">> ") {
		return
	}

	message, err := gocec.ParseMessage(logMessage.Message[3:])
	if err != nil {
		log.WithFields(log.Fields{
			"message": logMessage.Message,
			"error":   err,
		}).Debug("Ignoring unparsable CEC traffic")
		return
	}

	cec.devices.Announce(message.Source())

	cec.handlersMux.RLock()
	handlers := cec.messageReceivedHandlers[message.Opcode()]
	cec.handlersMux.RUnlock()

	for _, handler := range handlers {
		handler(message)
	}
}

func (cec *Cec) Transmit(message gocec.Message) {
	cec.connection.Transmit(message)
}

func (cec *Cec) PowerStatus(address gocec.LogicalAddress) gocec.PowerStatus {
	return cec.connection.GetPowerStatus(address)
}

func (cec *Cec) ActiveSource() gocec.LogicalAddress {
	return cec.connection.GetActiveSource()
}

func (cec *Cec) OSDName(address gocec.LogicalAddress) string {
	return cec.connection.GetOSDName(address)
}

func (cec *Cec) PowerOn(address gocec.LogicalAddress) {
	cec.connection.PowerOnDevice(address)
}

func (cec *Cec) StandBy(address gocec.LogicalAddress) {
	cec.connection.StandByDevice(address)
}

func cecHeader(initiator gocec.LogicalAddress, destination gocec.LogicalAddress) byte {
	return byte(initiator)<<4 | byte(destination)&0x0f
}
