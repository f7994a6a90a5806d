package messages

import "github.com/RobertMe/onoff2mqtt/onoff"

const (
	PropertyPower          = "power"
	PropertyIsActiveSource = "is_active_source"
)

type StateMessage struct {
	DeviceId string
	Property string
	State    onoff.State
}

func NewPowerMessage(deviceId string, state onoff.State) *StateMessage {
	return &StateMessage{DeviceId: deviceId, Property: PropertyPower, State: state}
}

func NewActiveSourceMessage(deviceId string, state onoff.State) *StateMessage {
	return &StateMessage{DeviceId: deviceId, Property: PropertyIsActiveSource, State: state}
}

func (message *StateMessage) MqttPath() string {
	return BuildPath(message.DeviceId, message.Property)
}

func (message *StateMessage) Payload(format onoff.Format) string {
	return format.Encode(message.State)
}
