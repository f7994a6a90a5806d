package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RobertMe/onoff2mqtt/onoff"
	log "github.com/sirupsen/logrus"
)

func init() {
	RegisterInitializer(100, InitHomeAssistantBridge)
}

type discoveryPublisher interface {
	BuildTopic(device *Device, property string) string
	BuildCommandTopic(device *Device, property string) string
	Format() onoff.Format
	Publish(topic string, qos byte, retained bool, payload interface{})
}

type HomeAssistantBridge struct {
	discoveryPrefix string
	mqtt            discoveryPublisher
	config          *Config
}

func NewHomeAssistantBridge(mqtt discoveryPublisher, config *Config) *HomeAssistantBridge {
	return &HomeAssistantBridge{
		discoveryPrefix: config.HomeAssistant.DiscoveryPrefix,
		mqtt:            mqtt,
		config:          config,
	}
}

func InitHomeAssistantBridge(container *Container) {
	config := MustResolve[*Config](container, "config")
	if config.HomeAssistant.Enable != onoff.On {
		log.Info("Home assistant integration is not enabled, skipping")
		return
	}

	container.Register("home-assistant", NewHomeAssistantBridge(MustResolve[*Mqtt](container, "mqtt"), config))
}

func (bridge *HomeAssistantBridge) RegisterSwitch(device *Device, property string) {
	config := bridge.createConfig(device, property)
	config["command_topic"] = bridge.mqtt.BuildCommandTopic(device, property)
	config["state_on"] = config["payload_on"]
	config["state_off"] = config["payload_off"]

	bridge.publish(device, "switch", property, config)
}

func (bridge *HomeAssistantBridge) RegisterBinarySensor(device *Device, property string) {
	bridge.publish(device, "binary_sensor", property, bridge.createConfig(device, property))
}

func (bridge *HomeAssistantBridge) publish(device *Device, component string, property string, config map[string]interface{}) {
	topic := strings.Builder{}
	fmt.Fprintf(&topic, "%s/%s/%s/%s/config", bridge.discoveryPrefix, component, device.Id, property)

	encoded, err := json.Marshal(config)
	if err != nil {
		log.WithFields(log.Fields{
			"device.id": device.Id,
			"property":  property,
			"config":    config,
			"error":     err,
		}).Errorf("Failed to convert %s configuration to JSON", component)

		return
	}

	log.WithFields(log.Fields{
		"device.id": device.Id,
		"property":  property,
		"config":    string(encoded),
	}).Infof("Registering %s in Home Assistant", component)

	bridge.mqtt.Publish(topic.String(), 0, true, encoded)
}

func (bridge *HomeAssistantBridge) createConfig(device *Device, property string) map[string]interface{} {
	format := bridge.mqtt.Format()

	config := map[string]interface{}{
		"state_topic": bridge.mqtt.BuildTopic(device, property),
		"name":        device.Name + "_" + property,
		"unique_id":   device.Id + "_" + property + "_" + bridge.config.Mqtt.BaseTopic,
		"payload_on":  format.Encode(onoff.On),
		"payload_off": format.Encode(onoff.Off),
	}

	if bridge.config.Mqtt.StateTopic != "" {
		config["availability_topic"] = bridge.config.Mqtt.StateTopic
		if bridge.config.Mqtt.BirthMessage != "" {
			config["payload_available"] = bridge.config.Mqtt.BirthMessage
		}
		if bridge.config.Mqtt.WillMessage != "" {
			config["payload_not_available"] = bridge.config.Mqtt.WillMessage
		}
	}

	config["device"] = map[string]interface{}{
		"identifiers": []string{"onoff2mqtt_" + device.Id},
		"name":        device.Name,
		"sw_version":  "onoff2mqtt " + BuildVersion,
	}

	return config
}
