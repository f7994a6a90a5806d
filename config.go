package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/RobertMe/onoff2mqtt/onoff"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const configFile = "config.yaml"

type MqttConfig struct {
	Host          string `yaml:"host"`
	Username      string
	Password      string
	StateTopic    string       `yaml:"state_topic"`
	BirthMessage  string       `yaml:"birth_message"`
	WillMessage   string       `yaml:"will_message"`
	BaseTopic     string       `yaml:"base_topic"`
	PayloadFormat onoff.Format `yaml:"payload_format"`
}

type HomeAssistantConfig struct {
	Enable          onoff.State `yaml:"enable"`
	DiscoveryPrefix string      `yaml:"discovery_prefix"`
}

type PowerConfig struct {
	// Control enables switching devices through the power command topic.
	Control onoff.State `yaml:"control"`
	// UnknownAs is published for power statuses without an on/off meaning. Nil skips them.
	UnknownAs *onoff.State `yaml:"unknown_as,omitempty"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"`
}

type Config struct {
	Mqtt          MqttConfig
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	Power         PowerConfig
	Metrics       MetricsConfig
}

func defaultConfig() Config {
	return Config{
		Mqtt: MqttConfig{
			BaseTopic:     "onoff2mqtt",
			PayloadFormat: onoff.FormatText,
		},
		HomeAssistant: HomeAssistantConfig{
			Enable: onoff.Off,
		},
		Power: PowerConfig{
			Control: onoff.On,
		},
	}
}

func ParseConfig(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, configFile)
	data, err := os.ReadFile(path)
	if nil != err {
		return nil, errors.Wrap(err, "read config")
	}

	config := defaultConfig()
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}

	config.Mqtt.BaseTopic = strings.Trim(config.Mqtt.BaseTopic, "/")
	config.HomeAssistant.DiscoveryPrefix = strings.Trim(config.HomeAssistant.DiscoveryPrefix, "/")
	if config.HomeAssistant.Enable == onoff.On && config.HomeAssistant.DiscoveryPrefix == "" {
		config.HomeAssistant.DiscoveryPrefix = "homeassistant"
	}

	return &config, nil
}

func (config *Config) Save(dataDir string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}

	return errors.Wrap(os.WriteFile(filepath.Join(dataDir, configFile), data, 0644), "write config")
}
