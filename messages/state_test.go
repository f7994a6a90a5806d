package messages

import (
	"testing"

	"github.com/RobertMe/onoff2mqtt/onoff"
	"github.com/stretchr/testify/assert"
)

func TestStateMessage(t *testing.T) {
	tests := []struct {
		name    string
		message Message
		path    string
		text    string
		integer string
	}{
		{
			name:    "power on",
			message: NewPowerMessage("abc", onoff.On),
			path:    "abc/power",
			text:    "on",
			integer: "1",
		},
		{
			name:    "not active source",
			message: NewActiveSourceMessage("abc", onoff.Off),
			path:    "abc/is_active_source",
			text:    "off",
			integer: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.path, tt.message.MqttPath())
			assert.Equal(t, tt.text, tt.message.Payload(onoff.FormatText))
			assert.Equal(t, tt.integer, tt.message.Payload(onoff.FormatInteger))
		})
	}
}

func TestCommandPath(t *testing.T) {
	assert.Equal(t, "abc/power/set", CommandPath("abc", PropertyPower))
}
