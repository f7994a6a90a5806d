package messages

import (
	"fmt"
	"strings"

	"github.com/RobertMe/onoff2mqtt/onoff"
)

type Message interface {
	MqttPath() string
	Payload(format onoff.Format) string
}

// BuildPath returns the topic of a device property relative to the base topic.
func BuildPath(deviceId string, property string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/%s", deviceId, property)
	return b.String()
}

// CommandPath returns the topic commands for a device property are received on.
func CommandPath(deviceId string, property string) string {
	return BuildPath(deviceId, property) + "/set"
}
