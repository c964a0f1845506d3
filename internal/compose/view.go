package compose

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fedhost/internal/ui"

	"go.uber.org/zap"
)

// ErrRegionNotResolved is returned when activating a region that is still
// loading or has failed.
var ErrRegionNotResolved = errors.New("region is not resolved")

type Status int

const (
	StatusPending Status = iota
	StatusResolved
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Update reports one region settling.
type Update struct {
	Region  string
	Status  Status
	Node    *ui.Node
	Err     error
	Elapsed time.Duration
}

// RegionSnapshot is the current state of one region.
type RegionSnapshot struct {
	ID     string
	Status Status
	Node   *ui.Node
	Err    error
}

type regionState struct {
	region   Region
	boundary *ui.Boundary
	status   Status
	node     *ui.Node
	err      error
}

// View is one mounted instance of a Root.
type View struct {
	id      string
	root    *Root
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time

	mu        sync.Mutex
	regions   []*regionState
	byID      map[string]*regionState
	unsettled int
	unmounted bool
	stopErr   error
	updates   chan Update
	done      chan struct{}
	closed    bool
}

// Mount renders every region once, which starts all loads, and follows the
// pending ones in the background. Regions already settled (cached states)
// resolve during Mount.
func (r *Root) Mount(ctx context.Context) *View {
	ctx, cancel := context.WithCancel(ctx)
	v := &View{
		id:        r.newID(),
		root:      r,
		ctx:       ctx,
		cancel:    cancel,
		started:   r.now(),
		byID:      make(map[string]*regionState, len(r.regions)),
		unsettled: len(r.regions),
		updates:   make(chan Update, len(r.regions)),
		done:      make(chan struct{}),
	}

	for _, reg := range r.regions {
		fallback := reg.Fallback
		if fallback == nil {
			fallback = DefaultFallback()
		}
		rs := &regionState{
			region:   reg,
			boundary: ui.Suspense(fallback, ui.Lazy(r.resolver, reg.Ref, reg.Props)),
			status:   StatusPending,
		}
		v.regions = append(v.regions, rs)
		v.byID[reg.ID] = rs
	}
	if len(v.regions) == 0 {
		v.finishLocked()
	}

	for _, rs := range v.regions {
		node, pending, err := rs.boundary.RenderState()
		if err != nil || pending == nil {
			v.settle(rs, node, err)
			continue
		}
		v.mu.Lock()
		rs.node = node
		v.mu.Unlock()
		go v.follow(rs, pending)
	}

	r.logger.Debug("view mounted", zap.String("view", v.id), zap.Int("regions", len(v.regions)))
	return v
}

func (v *View) follow(rs *regionState, pending *ui.Suspension) {
	for {
		if err := pending.Wait(v.ctx); err != nil {
			v.stop(err)
			return
		}
		node, next, err := rs.boundary.RenderState()
		if err != nil || next == nil {
			v.settle(rs, node, err)
			return
		}
		pending = next
	}
}

func (v *View) settle(rs *regionState, node *ui.Node, err error) {
	elapsed := v.root.now().Sub(v.started)

	v.mu.Lock()
	if v.unmounted {
		v.mu.Unlock()
		return
	}
	if err != nil {
		rs.status, rs.err = StatusFailed, err
		rs.node = ErrorNode(PresentError(err, v.root.verbose))
	} else {
		rs.status, rs.node = StatusResolved, node
	}
	v.updates <- Update{Region: rs.region.ID, Status: rs.status, Node: rs.node, Err: err, Elapsed: elapsed}
	v.unsettled--
	if v.unsettled == 0 {
		v.finishLocked()
	}
	v.mu.Unlock()

	v.root.metrics.RegionSettled(rs.region.ID, err, elapsed)
	if err != nil {
		v.root.logger.Warn("region failed",
			zap.String("view", v.id),
			zap.String("region", rs.region.ID),
			zap.Stringer("ref", rs.region.Ref),
			zap.Error(err))
		if v.root.onError != nil {
			v.root.onError.HandleRegionError(rs.region.ID, rs.region.Ref, err)
		}
		return
	}
	v.root.logger.Debug("region resolved",
		zap.String("view", v.id),
		zap.String("region", rs.region.ID),
		zap.Duration("elapsed", elapsed))
}

func (v *View) finishLocked() {
	if v.closed {
		return
	}
	v.closed = true
	close(v.updates)
	close(v.done)
}

func (v *View) ID() string { return v.id }

// Updates yields one Update per region as it settles and is closed once all
// regions have settled, the view is unmounted or the mount context is done.
func (v *View) Updates() <-chan Update { return v.updates }

// Done is closed once all regions have settled, the view is unmounted or the
// mount context is done.
func (v *View) Done() <-chan struct{} { return v.done }

// Err returns the mount context's error if it ended the view before every
// region settled, and nil otherwise.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stopErr
}

// Wait blocks until every region has settled.
func (v *View) Wait(ctx context.Context) error {
	select {
	case <-v.done:
		return v.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the state of every region in layout order.
func (v *View) Snapshot() []RegionSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]RegionSnapshot, len(v.regions))
	for i, rs := range v.regions {
		out[i] = RegionSnapshot{ID: rs.region.ID, Status: rs.status, Node: rs.node, Err: rs.err}
	}
	return out
}

// Region returns the state of one region.
func (v *View) Region(id string) (RegionSnapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	rs, ok := v.byID[id]
	if !ok {
		return RegionSnapshot{}, false
	}
	return RegionSnapshot{ID: id, Status: rs.status, Node: rs.node, Err: rs.err}, true
}

// Node returns the whole view: fallbacks for pending regions, content for
// resolved ones and an error notice for failed ones.
func (v *View) Node() *ui.Node {
	n, _ := v.render()
	return n
}

func (v *View) render() (*ui.Node, map[string]Status) {
	v.mu.Lock()
	defer v.mu.Unlock()
	statuses := make(map[string]Status, len(v.regions))
	children := make([]*ui.Node, 0, len(v.regions))
	for _, rs := range v.regions {
		statuses[rs.region.ID] = rs.status
		children = append(children, RegionWrapper(rs.region, rs.node))
	}
	attrs := map[string]string{"data-view": v.id}
	if v.root.class != "" {
		attrs["class"] = v.root.class
	}
	return ui.Element("div", attrs, children...), statuses
}

// RegionWrapper is the element that hosts a region's content in the page.
func RegionWrapper(reg Region, content *ui.Node) *ui.Node {
	attrs := map[string]string{"id": RegionElementID(reg.ID), "data-region": reg.ID}
	if reg.Class != "" {
		attrs["class"] = reg.Class
	}
	return ui.Element("div", attrs, content)
}

func RegionElementID(region string) string { return "region-" + region }

// Activate fires event on a resolved region's content.
func (v *View) Activate(region, event string) (bool, error) {
	v.mu.Lock()
	rs, ok := v.byID[region]
	if !ok {
		v.mu.Unlock()
		return false, fmt.Errorf("unknown region %q", region)
	}
	status, node := rs.status, rs.node
	v.mu.Unlock()

	if status != StatusResolved {
		return false, fmt.Errorf("%w: %s is %s", ErrRegionNotResolved, region, status)
	}
	return node.Activate(event), nil
}

// stop ends the view when its mount context is done. Results arriving later
// are discarded as after Unmount.
func (v *View) stop(err error) {
	v.mu.Lock()
	if v.unmounted || v.closed {
		v.mu.Unlock()
		return
	}
	v.unmounted = true
	v.stopErr = err
	v.finishLocked()
	v.mu.Unlock()

	v.root.logger.Debug("view stopped", zap.String("view", v.id), zap.Error(err))
}

// Unmount stops following pending regions. Loads already in flight continue
// elsewhere; their results are discarded by this view.
func (v *View) Unmount() {
	v.mu.Lock()
	v.unmounted = true
	v.finishLocked()
	v.mu.Unlock()
	v.cancel()
}
