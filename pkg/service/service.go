package service

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// Service is a long-running part of the app with a managed lifecycle.
type Service interface {
	Run()
	Shutdown(ctx context.Context) error
}

// Group starts and stops a list of services as one unit.
type Group struct {
	list []Service
}

func (g *Group) Add(services ...Service) { g.list = append(g.list, services...) }

// Start runs every service in the add order.
func (g *Group) Start() {
	for _, s := range g.list {
		s.Run()
	}
}

// Shutdown stops every service accumulating their errors.
func (g *Group) Shutdown(ctx context.Context) error {
	var result *multierror.Error
	for _, s := range g.list {
		if err := s.Shutdown(ctx); err != nil && err != context.Canceled {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
