package main

import (
	"github.com/RobertMe/onoff2mqtt/onoff"
	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = &Metrics{}

// Metrics exposes the last published states. Gauges carry the integer code of the state.
type Metrics struct {
	powerState   *prometheus.GaugeVec
	activeSource *prometheus.GaugeVec
	unknownCodes *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		powerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName("onoff2mqtt", "device", "power_state"),
			Help: "Power state of the device. 1 if the device is on",
		}, []string{"device", "name"}),
		activeSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName("onoff2mqtt", "device", "active_source"),
			Help: "1 if the device is the active source",
		}, []string{"device", "name"}),
		unknownCodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName("onoff2mqtt", "", "unknown_codes_total"),
			Help: "Number of values that could not be mapped to on or off",
		}, []string{"source"}),
	}
}

func (m *Metrics) SetPowerState(device *Device, state onoff.State) {
	m.powerState.WithLabelValues(device.Id, device.Name).Set(float64(state.Value()))
}

func (m *Metrics) SetActiveSource(device *Device, state onoff.State) {
	m.activeSource.WithLabelValues(device.Id, device.Name).Set(float64(state.Value()))
}

func (m *Metrics) UnknownCode(source string) {
	m.unknownCodes.WithLabelValues(source).Inc()
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.powerState.Describe(ch)
	m.activeSource.Describe(ch)
	m.unknownCodes.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.powerState.Collect(ch)
	m.activeSource.Collect(ch)
	m.unknownCodes.Collect(ch)
}
