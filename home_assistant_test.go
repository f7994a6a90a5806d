package main

import (
	"encoding/json"
	"testing"

	"github.com/RobertMe/onoff2mqtt/onoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeAssistantBridge_RegisterSwitch(t *testing.T) {
	publisher := &fakePublisher{format: onoff.FormatInteger}
	config := defaultConfig()
	config.HomeAssistant.DiscoveryPrefix = "homeassistant"
	config.Mqtt.StateTopic = "onoff2mqtt/state"
	config.Mqtt.BirthMessage = "online"
	bridge := NewHomeAssistantBridge(publisher, &config)
	device := testDevice(0)

	bridge.RegisterSwitch(device, "power")

	messages := publisher.Published()
	require.Len(t, messages, 1)
	assert.Equal(t, "homeassistant/switch/"+device.Id+"/power/config", messages[0].topic)
	assert.True(t, messages[0].retained)

	var discovery map[string]interface{}
	require.NoError(t, json.Unmarshal(messages[0].payload.([]byte), &discovery))
	assert.Equal(t, "test/"+device.Id+"/power", discovery["state_topic"])
	assert.Equal(t, "test/"+device.Id+"/power/set", discovery["command_topic"])
	assert.Equal(t, "1", discovery["payload_on"])
	assert.Equal(t, "0", discovery["payload_off"])
	assert.Equal(t, "1", discovery["state_on"])
	assert.Equal(t, "onoff2mqtt/state", discovery["availability_topic"])
	assert.Equal(t, "online", discovery["payload_available"])
	assert.NotContains(t, discovery, "payload_not_available")
}

func TestHomeAssistantBridge_RegisterBinarySensor(t *testing.T) {
	publisher := &fakePublisher{format: onoff.FormatText}
	config := defaultConfig()
	config.HomeAssistant.DiscoveryPrefix = "ha"
	bridge := NewHomeAssistantBridge(publisher, &config)
	device := testDevice(4)

	bridge.RegisterBinarySensor(device, "is_active_source")

	messages := publisher.Published()
	require.Len(t, messages, 1)
	assert.Equal(t, "ha/binary_sensor/"+device.Id+"/is_active_source/config", messages[0].topic)

	var discovery map[string]interface{}
	require.NoError(t, json.Unmarshal(messages[0].payload.([]byte), &discovery))
	assert.Equal(t, "on", discovery["payload_on"])
	assert.Equal(t, "off", discovery["payload_off"])
	assert.NotContains(t, discovery, "command_topic")
	assert.NotContains(t, discovery, "availability_topic")
	assert.Equal(t, device.Id+"_is_active_source_onoff2mqtt", discovery["unique_id"])
}
