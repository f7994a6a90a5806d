package main

import (
	"fmt"
	"strings"

	"github.com/RobertMe/onoff2mqtt/messages"
	"github.com/RobertMe/onoff2mqtt/onoff"
	"github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type PayloadHandler func(payload []byte)

type Mqtt struct {
	client mqtt.Client
	config *MqttConfig
}

func ConnectMqtt(config *Config) (*Mqtt, error) {
	mqttConfig := config.Mqtt
	options := mqtt.NewClientOptions()

	options.AddBroker(mqttConfig.Host)
	options.SetClientID("onoff2mqtt")

	if mqttConfig.Username != "" {
		options.SetUsername(mqttConfig.Username)
	}

	if mqttConfig.Password != "" {
		options.SetPassword(mqttConfig.Password)
	}

	if mqttConfig.StateTopic != "" {
		if mqttConfig.WillMessage != "" {
			options.SetWill(mqttConfig.StateTopic, mqttConfig.WillMessage, 0, true)
		}

		if mqttConfig.BirthMessage != "" {
			options.SetOnConnectHandler(func(client mqtt.Client) {
				client.Publish(mqttConfig.StateTopic, 0, true, mqttConfig.BirthMessage)
			})
		}
	}

	client := mqtt.NewClient(options)

	connToken := client.Connect()
	connToken.Wait()
	if err := connToken.Error(); err != nil {
		return nil, errors.Wrapf(err, "connect to %s", mqttConfig.Host)
	}

	return NewMqtt(client, &mqttConfig), nil
}

func NewMqtt(client mqtt.Client, config *MqttConfig) *Mqtt {
	return &Mqtt{
		client: client,
		config: config,
	}
}

// BuildTopic returns the absolute topic of a device property.
func (m *Mqtt) BuildTopic(device *Device, property string) string {
	return m.absolute(messages.BuildPath(device.Id, property))
}

func (m *Mqtt) BuildCommandTopic(device *Device, property string) string {
	return m.absolute(messages.CommandPath(device.Id, property))
}

func (m *Mqtt) absolute(relativeTopic string) string {
	if m.config.BaseTopic == "" {
		return relativeTopic
	}

	topic := strings.Builder{}
	fmt.Fprintf(&topic, "%s/%s", m.config.BaseTopic, relativeTopic)
	return topic.String()
}

func (m *Mqtt) Format() onoff.Format {
	return m.config.PayloadFormat
}

func (m *Mqtt) Publish(topic string, qos byte, retained bool, payload interface{}) {
	token := m.client.Publish(topic, qos, retained, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			log.WithFields(log.Fields{
				"topic": topic,
				"error": err,
			}).Error("Failed to publish MQTT message")
		}
	}()
}

func (m *Mqtt) PublishMessage(message messages.Message) {
	m.Publish(m.absolute(message.MqttPath()), 0, true, message.Payload(m.Format()))
}

func (m *Mqtt) Subscribe(topic string, handler PayloadHandler) error {
	token := m.client.Subscribe(topic, 0, func(_ mqtt.Client, message mqtt.Message) {
		handler(message.Payload())
	})
	token.Wait()
	return errors.Wrapf(token.Error(), "subscribe to %s", topic)
}
