package main

import (
	"sync"
	"time"
)

type Starter func()
type Runner func()

// Monitor polls with runner. After creation and after every Reset it polls every shortInterval for
// shortDuration, then falls back to longInterval. starter runs before each fast polling period.
type Monitor struct {
	reset    chan struct{}
	stop     chan struct{}
	stopOnce sync.Once

	longInterval  time.Duration
	shortInterval time.Duration
	shortDuration time.Duration

	starter Starter
	runner  Runner
}

func CreateMonitor(starter Starter, runner Runner, longInterval time.Duration, shortInterval time.Duration, shortDuration time.Duration) *Monitor {
	monitor := &Monitor{
		reset:         make(chan struct{}),
		stop:          make(chan struct{}),
		longInterval:  longInterval,
		shortInterval: shortInterval,
		shortDuration: shortDuration,
		starter:       starter,
		runner:        runner,
	}

	go monitor.run()

	return monitor
}

// Reset restarts the fast polling period. It is a no-op once the monitor is stopped.
func (monitor *Monitor) Reset() {
	select {
	case monitor.reset <- struct{}{}:
	case <-monitor.stop:
	}
}

// Stop ends polling. It is safe to call more than once.
func (monitor *Monitor) Stop() {
	monitor.stopOnce.Do(func() {
		close(monitor.stop)
	})
}

func (monitor *Monitor) run() {
	monitor.starter()
	monitor.runner()

	ticker := time.NewTicker(monitor.shortInterval)
	shortTimer := time.NewTimer(monitor.shortDuration)
	defer func() {
		ticker.Stop()
		shortTimer.Stop()
	}()

	for {
		select {
		case <-ticker.C:
			monitor.runner()

		case <-monitor.reset:
			monitor.starter()
			monitor.runner()

			ticker.Reset(monitor.shortInterval)
			if !shortTimer.Stop() {
				select {
				case <-shortTimer.C:
				default:
				}
			}
			shortTimer.Reset(monitor.shortDuration)

		case <-shortTimer.C:
			ticker.Reset(monitor.longInterval)

		case <-monitor.stop:
			return
		}
	}
}
