package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RobertMe/onoff2mqtt/onoff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFile), []byte(content), 0644))
	return dir
}

func TestParseConfig(t *testing.T) {
	dir := writeConfig(t, `
mqtt:
  host: tcp://broker:1883
  base_topic: /cec/
  payload_format: integer
home_assistant:
  enable: on
power:
  control: 0
  unknown_as: off
metrics:
  listen: ":9090"
`)

	config, err := ParseConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "tcp://broker:1883", config.Mqtt.Host)
	assert.Equal(t, "cec", config.Mqtt.BaseTopic)
	assert.Equal(t, onoff.FormatInteger, config.Mqtt.PayloadFormat)
	assert.Equal(t, onoff.On, config.HomeAssistant.Enable)
	assert.Equal(t, "homeassistant", config.HomeAssistant.DiscoveryPrefix)
	assert.Equal(t, onoff.Off, config.Power.Control)
	require.NotNil(t, config.Power.UnknownAs)
	assert.Equal(t, onoff.Off, *config.Power.UnknownAs)
	assert.Equal(t, ":9090", config.Metrics.Listen)
}

func TestParseConfig_Defaults(t *testing.T) {
	config, err := ParseConfig(writeConfig(t, "mqtt:\n  host: tcp://broker:1883\n"))
	require.NoError(t, err)

	assert.Equal(t, "onoff2mqtt", config.Mqtt.BaseTopic)
	assert.Equal(t, onoff.FormatText, config.Mqtt.PayloadFormat)
	assert.Equal(t, onoff.Off, config.HomeAssistant.Enable)
	assert.Empty(t, config.HomeAssistant.DiscoveryPrefix)
	assert.Equal(t, onoff.On, config.Power.Control)
	assert.Nil(t, config.Power.UnknownAs)
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := map[string]string{
		"unknown flag code":  "home_assistant:\n  enable: 3\n",
		"unknown flag label": "power:\n  control: sometimes\n",
		"unknown format":     "mqtt:\n  payload_format: binary\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig(writeConfig(t, content))
			assert.Error(t, err)
		})
	}

	_, err := ParseConfig(t.TempDir())
	assert.Error(t, err)
}

func TestConfig_Save(t *testing.T) {
	dir := writeConfig(t, "mqtt:\n  host: tcp://broker:1883\nhome_assistant:\n  enable: true\n")
	config, err := ParseConfig(dir)
	require.NoError(t, err)

	require.NoError(t, config.Save(dir))

	reloaded, err := ParseConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, config, reloaded)
}
