// Package resolver walks the transitive dependency graph and produces the
// flat resolved set an install operation materializes from.
//
// The walk is a fixed-point over a work queue: each entry resolves its spec
// to a concrete version, inserts a resolved package once per (name, version),
// and enqueues that version's dependencies. Entries resolve concurrently;
// the shared set is serialized under one mutex and writers release it before
// any I/O.
package resolver

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/pacm-sh/pacm/internal/errs"
	"github.com/pacm-sh/pacm/internal/platform"
	"github.com/pacm-sh/pacm/internal/registry"
	"github.com/pacm-sh/pacm/internal/spec"
	"github.com/pacm-sh/pacm/internal/versions"
)

// fetchConcurrency bounds concurrent metadata fetches during one walk.
const fetchConcurrency = 15

var logger = log.WithPrefix("resolve")

// Category partitions direct installs for manifest and lockfile placement.
type Category int

const (
	Prod Category = iota
	Dev
)

// Package is one element of the resolved set.
type Package struct {
	// Name is the directory name under node_modules. It differs from
	// RealName only for npm: aliased specs.
	Name     string
	RealName string
	Version  string

	TarballURL string
	Integrity  string

	// Dependencies and OptionalDependencies map child names to the
	// concrete versions picked for them during this walk.
	Dependencies         map[string]string
	OptionalDependencies map[string]string
	PeerDependencies     map[string]string

	Bin map[string]string
	OS  []string
	CPU []string

	Category Category
	Direct   bool
}

// Skipped records an optional dependency pruned from the walk.
type Skipped struct {
	Name   string
	Range  string
	Reason string
}

// Result is the output of one resolution.
type Result struct {
	// Packages in insertion order.
	Packages []*Package
	// DirectProd and DirectDev hold the top-level installed names.
	DirectProd []string
	DirectDev  []string
	// Skipped optional dependencies, with reasons.
	Skipped []Skipped
}

// Resolver drives the walk against a registry client.
type Resolver struct {
	reg *registry.Client

	mu      sync.Mutex
	seen    map[string]*Package // name@version -> entry
	byName  map[string]string   // name -> first resolved version
	result  *Result
	fetchCh chan struct{}
}

// New creates a Resolver.
func New(reg *registry.Client) *Resolver {
	return &Resolver{reg: reg}
}

type workItem struct {
	spec     spec.Spec
	category Category
	optional bool
	peer     bool
	direct   bool
	parent   *Package
}

// Direct is a top-level request: a parsed spec plus its partition.
type Direct struct {
	Spec spec.Spec
	Dev  bool
}

// Resolve walks the direct requests and their transitive closure. Each
// request's subtree inherits its partition.
func (r *Resolver) Resolve(ctx context.Context, direct []Direct) (*Result, error) {
	r.mu.Lock()
	r.seen = make(map[string]*Package)
	r.byName = make(map[string]string)
	r.result = &Result{}
	r.fetchCh = make(chan struct{}, fetchConcurrency)
	r.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, d := range direct {
		item := workItem{spec: d.Spec, category: Prod, direct: true}
		if d.Dev {
			item.category = Dev
		}
		g.Go(func() error {
			return r.resolveOne(ctx, g, item)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r.result, nil
}

// resolveOne processes a single queue entry and spawns its children.
func (r *Resolver) resolveOne(ctx context.Context, g *errgroup.Group, item workItem) error {
	meta, version, err := r.pick(ctx, item)
	if err != nil {
		return r.failOrSkip(item, err)
	}
	vm := meta.Versions[version]

	if !platform.Compatible(vm.OS, vm.CPU) {
		return r.failOrSkip(item, &errs.ResolutionError{
			Kind: errs.PlatformIncompatible, Name: item.spec.Name, Range: item.spec.Range,
		})
	}

	pkg, inserted := r.insert(item, vm, version)
	if !inserted {
		return nil
	}

	children := make([]workItem, 0, len(vm.Dependencies)+len(vm.PeerDependencies)+len(vm.OptionalDependencies))
	for name, rng := range vm.Dependencies {
		children = append(children, workItem{
			spec:     spec.Spec{Name: name, Real: name, Range: rng},
			category: item.category,
			optional: item.optional,
			parent:   pkg,
		})
	}
	for name, rng := range vm.PeerDependencies {
		children = append(children, workItem{
			spec:     spec.Spec{Name: name, Real: name, Range: rng},
			category: item.category,
			optional: item.optional,
			peer:     true,
			parent:   pkg,
		})
	}
	for name, rng := range vm.OptionalDependencies {
		children = append(children, workItem{
			spec:     spec.Spec{Name: name, Real: name, Range: rng},
			category: item.category,
			optional: true,
			parent:   pkg,
		})
	}

	for _, child := range children {
		g.Go(func() error {
			return r.resolveOne(ctx, g, child)
		})
	}
	return nil
}

// pick fetches metadata for the item and selects a concrete version, with
// the walk-wide fetch budget held only for the network round trip.
func (r *Resolver) pick(ctx context.Context, item workItem) (*registry.Metadata, string, error) {
	select {
	case r.fetchCh <- struct{}{}:
	case <-ctx.Done():
		return nil, "", ctx.Err()
	}
	meta, err := r.reg.FetchMetadata(ctx, item.spec.Real)
	<-r.fetchCh
	if err != nil {
		return nil, "", err
	}

	version, err := versions.Pick(meta, item.spec.Range)
	if err != nil {
		return nil, "", err
	}
	return meta, version, nil
}

// insert adds the resolved package to the shared set, observing the
// (name, version) de-duplication invariant, and records the concrete pick
// on the parent. Returns false when the entry already existed.
func (r *Resolver) insert(item workItem, vm registry.VersionMetadata, version string) (*Package, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.parent != nil {
		switch {
		case item.peer:
			item.parent.PeerDependencies[item.spec.Name] = version
		case item.optional:
			item.parent.OptionalDependencies[item.spec.Name] = version
		default:
			item.parent.Dependencies[item.spec.Name] = version
		}
	}
	if item.direct {
		r.recordDirectLocked(item)
	}

	key := item.spec.Name + "@" + version
	if existing, ok := r.seen[key]; ok {
		return existing, false
	}

	if first, ok := r.byName[item.spec.Name]; ok && first != version {
		logger.Warn("multiple versions resolved for package; last extraction wins on disk",
			"tag", errs.TagResolve, "name", item.spec.Name, "versions", first+", "+version)
	} else if !ok {
		r.byName[item.spec.Name] = version
	}

	pkg := &Package{
		Name:                 item.spec.Name,
		RealName:             item.spec.Real,
		Version:              version,
		TarballURL:           vm.Dist.Tarball,
		Integrity:            vm.Integrity(),
		Dependencies:         make(map[string]string),
		OptionalDependencies: make(map[string]string),
		PeerDependencies:     make(map[string]string),
		Bin:                  vm.Bin.Resolve(item.spec.Real),
		OS:                   vm.OS,
		CPU:                  vm.CPU,
		Category:             item.category,
		Direct:               item.direct,
	}
	r.seen[key] = pkg
	r.result.Packages = append(r.result.Packages, pkg)
	return pkg, true
}

func (r *Resolver) recordDirectLocked(item workItem) {
	list := &r.result.DirectProd
	if item.category == Dev {
		list = &r.result.DirectDev
	}
	for _, name := range *list {
		if name == item.spec.Name {
			return
		}
	}
	*list = append(*list, item.spec.Name)
}

// failOrSkip converts failures on optional branches into recorded skips.
func (r *Resolver) failOrSkip(item workItem, err error) error {
	if !item.optional {
		return err
	}
	logger.Warn("skipping optional dependency",
		"tag", errs.Tag(err), "name", item.spec.Name, "range", item.spec.Range, "reason", err.Error())
	r.mu.Lock()
	r.result.Skipped = append(r.result.Skipped, Skipped{
		Name:   item.spec.Name,
		Range:  item.spec.Range,
		Reason: err.Error(),
	})
	r.mu.Unlock()
	return nil
}
