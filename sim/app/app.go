// Package app provides traffic generators and sinks that run on nodes.
package app

import (
	"github.com/inference-sim/netsim/sim"
)

// Application is started and stopped by a Container at scheduled times.
type Application interface {
	StartApplication()
	StopApplication()
}

// Container groups applications that share start and stop times.
type Container struct {
	sim  *sim.Simulator
	apps []Application
}

func NewContainer(s *sim.Simulator, apps ...Application) *Container {
	return &Container{sim: s, apps: apps}
}

func (c *Container) Add(apps ...Application) { c.apps = append(c.apps, apps...) }

func (c *Container) Apps() []Application { return c.apps }

// Start schedules StartApplication on every app at absolute time at.
func (c *Container) Start(at sim.Time) error {
	for _, a := range c.apps {
		if _, err := c.sim.ScheduleAt(at, sim.EventFunc(func(*sim.Simulator) { a.StartApplication() })); err != nil {
			return err
		}
	}
	return nil
}

// Stop schedules StopApplication on every app at absolute time at.
func (c *Container) Stop(at sim.Time) error {
	for _, a := range c.apps {
		if _, err := c.sim.ScheduleAt(at, sim.EventFunc(func(*sim.Simulator) { a.StopApplication() })); err != nil {
			return err
		}
	}
	return nil
}
