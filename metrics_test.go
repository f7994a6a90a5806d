package main

import (
	"strings"
	"testing"

	"github.com/RobertMe/onoff2mqtt/onoff"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	device := testDevice(0)

	m.SetPowerState(device, onoff.On)
	m.SetActiveSource(device, onoff.Off)
	m.UnknownCode("command")

	require.NoError(t, testutil.CollectAndCompare(m, strings.NewReader(`
# HELP onoff2mqtt_device_active_source 1 if the device is the active source
# TYPE onoff2mqtt_device_active_source gauge
onoff2mqtt_device_active_source{device="device-a",name="tv"} 0

# HELP onoff2mqtt_device_power_state Power state of the device. 1 if the device is on
# TYPE onoff2mqtt_device_power_state gauge
onoff2mqtt_device_power_state{device="device-a",name="tv"} 1

# HELP onoff2mqtt_unknown_codes_total Number of values that could not be mapped to on or off
# TYPE onoff2mqtt_unknown_codes_total counter
onoff2mqtt_unknown_codes_total{source="command"} 1
`)))
}
