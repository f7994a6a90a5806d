package main

import (
	"sync"
	"time"

	"github.com/RobertMe/gocec"
	"github.com/RobertMe/onoff2mqtt/messages"
	"github.com/RobertMe/onoff2mqtt/onoff"
)

type published struct {
	topic    string
	retained bool
	payload  interface{}
}

type fakePublisher struct {
	mux      sync.Mutex
	format   onoff.Format
	messages []published
}

func (f *fakePublisher) BuildTopic(device *Device, property string) string {
	return "test/" + messages.BuildPath(device.Id, property)
}

func (f *fakePublisher) BuildCommandTopic(device *Device, property string) string {
	return "test/" + messages.CommandPath(device.Id, property)
}

func (f *fakePublisher) Format() onoff.Format {
	return f.format
}

func (f *fakePublisher) Publish(topic string, _ byte, retained bool, payload interface{}) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.messages = append(f.messages, published{topic: topic, retained: retained, payload: payload})
}

func (f *fakePublisher) PublishMessage(message messages.Message) {
	f.Publish("test/"+message.MqttPath(), 0, true, message.Payload(f.format))
}

func (f *fakePublisher) Published() []published {
	f.mux.Lock()
	defer f.mux.Unlock()
	return append([]published(nil), f.messages...)
}

type fakeBus struct {
	mux         sync.Mutex
	status      gocec.PowerStatus
	transmitted []gocec.Message
	poweredOn   []gocec.LogicalAddress
	standBy     []gocec.LogicalAddress
}

func (f *fakeBus) PowerOn(address gocec.LogicalAddress) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.poweredOn = append(f.poweredOn, address)
}

func (f *fakeBus) StandBy(address gocec.LogicalAddress) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.standBy = append(f.standBy, address)
}

func (f *fakeBus) Transmit(message gocec.Message) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.transmitted = append(f.transmitted, message)
}

func (f *fakeBus) PowerStatus(_ gocec.LogicalAddress) gocec.PowerStatus {
	f.mux.Lock()
	defer f.mux.Unlock()
	return f.status
}

func (f *fakeBus) Transmitted() []gocec.Message {
	f.mux.Lock()
	defer f.mux.Unlock()
	return append([]gocec.Message(nil), f.transmitted...)
}

// gatedPublisher holds the first published message until release is closed.
type gatedPublisher struct {
	fakePublisher
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedPublisher(format onoff.Format) *gatedPublisher {
	return &gatedPublisher{
		fakePublisher: fakePublisher{format: format},
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
}

func (g *gatedPublisher) PublishMessage(message messages.Message) {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	g.fakePublisher.PublishMessage(message)
}

// doneToken is an already completed paho token.
type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func testDevice(address int) *Device {
	return &Device{
		Id:             "device-" + string(rune('a'+address)),
		Name:           "tv",
		LogicalAddress: gocec.LogicalAddress(address),
		Address:        address,
	}
}
