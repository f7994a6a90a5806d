package main

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

type Container struct {
	mux      sync.RWMutex
	services map[string]interface{}
}

func NewContainer() *Container {
	return &Container{
		services: make(map[string]interface{}),
	}
}

func (container *Container) Register(name string, service interface{}) {
	log.WithFields(log.Fields{
		"name": name,
	}).Trace("Registering new service into container")

	container.mux.Lock()
	defer container.mux.Unlock()
	container.services[name] = service
}

func (container *Container) Get(name string) interface{} {
	container.mux.RLock()
	defer container.mux.RUnlock()
	service, ok := container.services[name]
	if !ok {
		log.WithFields(log.Fields{
			"name": name,
		}).Debug("Service not available in container")

		return nil
	}

	return service
}

// Resolve returns the service registered under name when it has type T.
func Resolve[T any](container *Container, name string) (T, bool) {
	service, ok := container.Get(name).(T)
	return service, ok
}

// MustResolve is Resolve for services every initializer depends on.
func MustResolve[T any](container *Container, name string) T {
	service, ok := Resolve[T](container, name)
	if !ok {
		log.WithFields(log.Fields{
			"name": name,
		}).Fatal("Required service missing from container")
	}
	return service
}
