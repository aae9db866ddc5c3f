// Package services hosts the domain services that turn parser events into
// persistent game statistics, plus the container that wires them up.
package services

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Descriptor is a service's metadata: its name, its own version and the
// version constraints it places on other services.
type Descriptor struct {
	Name     string
	Version  string
	Requires map[string]string
}

// Service is one long-lived domain component. Constructors subscribe their
// event handlers; the container drives the lifecycle hooks.
type Service interface {
	Descriptor() Descriptor
	Startup(ctx context.Context) error
	// PostStartup runs after every accepted service has started, so initial
	// cross-service restores find all handlers subscribed.
	PostStartup(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Registration pairs a descriptor with a deferred constructor. Construction
// only happens once the dependency check passes.
type Registration struct {
	Descriptor Descriptor
	Construct  func() Service
}

// Container resolves service dependencies and drives their lifecycle in
// registration order (shutdown runs in reverse).
type Container struct {
	registrations []Registration
	services      []Service
	log           *logrus.Entry
}

// NewContainer returns an empty container logging through the given entry.
func NewContainer(log *logrus.Entry) *Container {
	return &Container{log: log}
}

// Add registers a service for the next Startup.
func (c *Container) Add(reg Registration) {
	c.registrations = append(c.registrations, reg)
}

// Startup instantiates and starts every registration whose dependencies are
// satisfied. A service with unmet dependencies is skipped with a warning,
// never an error. After all services have started, PostStartup runs on each.
func (c *Container) Startup(ctx context.Context) error {
	registry := make(map[string]Descriptor, len(c.registrations))
	for _, reg := range c.registrations {
		registry[reg.Descriptor.Name] = reg.Descriptor
	}

	for _, reg := range c.registrations {
		if !c.dependenciesMet(reg.Descriptor, registry) {
			c.log.WithField("service", reg.Descriptor.Name).Warn("Skipped service due to unmet dependencies")
			continue
		}

		svc := reg.Construct()
		if err := svc.Startup(ctx); err != nil {
			c.log.WithError(err).WithField("service", reg.Descriptor.Name).Error("Service startup failed")
			continue
		}
		c.services = append(c.services, svc)
		c.log.WithFields(logrus.Fields{
			"service": reg.Descriptor.Name,
			"version": reg.Descriptor.Version,
		}).Info("Loaded service")
	}

	for _, svc := range c.services {
		if err := svc.PostStartup(ctx); err != nil {
			c.log.WithError(err).WithField("service", svc.Descriptor().Name).Error("Post-startup failed")
		}
	}

	c.log.WithField("count", len(c.services)).Info("Services started")
	return nil
}

func (c *Container) dependenciesMet(desc Descriptor, registry map[string]Descriptor) bool {
	for depName, requirement := range desc.Requires {
		dep, present := registry[depName]
		if !present {
			c.log.WithFields(logrus.Fields{
				"service":    desc.Name,
				"dependency": depName,
				"constraint": requirement,
			}).Error("Required service is not registered")
			return false
		}

		ok, err := satisfies(dep.Version, requirement)
		if err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"service":    desc.Name,
				"dependency": depName,
			}).Error("Invalid version constraint")
			return false
		}
		if !ok {
			c.log.WithFields(logrus.Fields{
				"service":    desc.Name,
				"dependency": depName,
				"constraint": requirement,
				"loaded":     dep.Version,
			}).Error("Dependency version does not satisfy constraint")
			return false
		}
	}
	return true
}

// Loaded reports the names of the running services.
func (c *Container) Loaded() []string {
	names := make([]string, 0, len(c.services))
	for _, svc := range c.services {
		names = append(names, svc.Descriptor().Name)
	}
	return names
}

// Shutdown stops services in reverse startup order. Errors are logged, never
// propagated.
func (c *Container) Shutdown(ctx context.Context) {
	for i := len(c.services) - 1; i >= 0; i-- {
		svc := c.services[i]
		if err := svc.Shutdown(ctx); err != nil {
			c.log.WithError(err).WithField("service", svc.Descriptor().Name).Error("Service shutdown failed")
		}
	}
	c.log.Info("All services shut down")
}
