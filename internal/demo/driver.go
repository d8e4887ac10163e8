package demo

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/procstate/processor"
)

// Args are loosely typed action arguments, as decoded from YAML or CUE.
type Args map[string]any

// Driver is a type-erased handle on a running demo processor.
type Driver interface {
	ID() string
	Send(action string, args Args) error
	Wait(ctx context.Context) error
	CancelAll()
	EffectIDs() []string
	Fields() map[string]any
	Close()
}

// Domain describes a named demo domain.
type Domain struct {
	Name        string
	Description string
	Actions     []string
	// New starts a processor for the domain. Later options override the
	// domain's defaults.
	New func(opts ...processor.Option) Driver
}

var domains = map[string]Domain{}

func register(d Domain) {
	domains[d.Name] = d
}

// Lookup returns the domain registered under name.
func Lookup(name string) (Domain, error) {
	d, ok := domains[name]
	if !ok {
		return Domain{}, fmt.Errorf("unknown domain %q (known: %v)", name, Names())
	}
	return d, nil
}

// Names returns registered domain names in sorted order.
func Names() []string {
	names := make([]string, 0, len(domains))
	for name := range domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// driver adapts a typed Processor to Driver.
type driver[S, A, P any] struct {
	p      *processor.Processor[S, A, P]
	parse  func(name string, args Args) (A, error)
	fields func(S) map[string]any
}

func (d *driver[S, A, P]) ID() string { return d.p.ID() }

func (d *driver[S, A, P]) Send(name string, args Args) error {
	action, err := d.parse(name, args)
	if err != nil {
		return err
	}
	d.p.Send(action)
	return nil
}

func (d *driver[S, A, P]) Wait(ctx context.Context) error { return d.p.Wait(ctx) }

func (d *driver[S, A, P]) CancelAll() { d.p.CancelAll() }

func (d *driver[S, A, P]) EffectIDs() []string { return d.p.EffectIDs() }

func (d *driver[S, A, P]) Fields() map[string]any {
	return processor.Select(d.p, d.fields)
}

func (d *driver[S, A, P]) Close() { d.p.Close() }
