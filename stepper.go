package loom

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotPrepared is returned by Step when no start target has been set.
var ErrNotPrepared = errors.New("stepper not prepared: no start target")

// Row is one pending execution: a target and the pack it will receive.
type Row struct {
	Caller Caller
	Args   *ArgsPack
}

// StashEntry pairs a terminal caller with every pack it ended with, in
// arrival order.
type StashEntry struct {
	Caller Caller
	Packs  []*ArgsPack
}

// Stepper is the execution engine: a manual, non-recursive interpreter
// that advances a frontier of rows one generation at a time. Every step
// consumes the current frontier, executes each row exactly once, and
// replaces the frontier with the concatenated successors. Reifying "what
// to call next" as rows lets a caller pause, inspect, merge, or abandon a
// walk between any two steps: pausing is simply not calling Step again.
//
// A stepper is single-threaded and synchronous. The graph is read-only
// during a walk; the only mutable state is the stepper's own rows and
// stash. Rows within one generation execute in production order, and
// generations are strictly breadth-first.
type Stepper struct {
	graph *Graph

	// ConcatAware enables merge-node consolidation: rows addressed to
	// the same merge destination within a generation collapse into one
	// row with their packs concatenated.
	ConcatAware bool

	// StashEnds controls terminal handling. When true (the default),
	// terminal packs accumulate in the stash. When false, a terminal
	// row is re-queued once with an empty caller so the caller can
	// observe termination without persistent storage.
	StashEnds bool

	walkID     string
	startRows  []Row
	prepared   bool
	started    bool
	rows       []Row
	generation int

	stash      map[string]*stashBucket
	stashOrder []string

	handlers []EventHandler
}

type stashBucket struct {
	caller Caller
	packs  []*ArgsPack
}

// NewStepper creates a stepper bound to one graph.
func NewStepper(g *Graph) *Stepper {
	s := &Stepper{
		graph:     g,
		StashEnds: true,
	}
	s.resetStash()
	return s
}

// OnEvent registers a handler for stepper events.
func (s *Stepper) OnEvent(h EventHandler) {
	if h != nil {
		s.handlers = append(s.handlers, h)
	}
}

func (s *Stepper) emit(e Event) {
	if len(s.handlers) == 0 {
		return
	}
	e.WalkID = s.walkID
	if s.graph != nil {
		e.Graph = s.graph.Name()
	}
	e.Generation = s.generation
	e.Time = time.Now()
	for _, h := range s.handlers {
		h(e)
	}
}

// Prepare primes the stepper with start targets and the initial pack.
// An exhausted stepper may be re-primed with a new start target; the
// frontier resets but the stash is retained until drained.
func (s *Stepper) Prepare(akw *ArgsPack, targets ...any) {
	if akw == nil {
		akw = NewArgsPack()
	}
	items := make([]any, len(targets))
	copy(items, targets)
	s.startRows = expand(items, akw)
	s.prepared = true
	s.started = false
	s.rows = nil
	s.generation = 0
	s.walkID = uuid.NewString()
	s.emit(Event{Kind: EventWalkPrepared, Rows: len(s.startRows)})
}

// Rows returns the current frontier.
func (s *Stepper) Rows() []Row {
	return s.rows
}

// Step executes one generation: every row in the current frontier runs
// exactly once, and the frontier is replaced by the concatenation of all
// successor rows, which is also returned. An empty result means every
// branch terminated this generation.
//
// A row error aborts the entire generation: the frontier is left
// untouched and the error propagates. This is a deliberate sharp edge;
// there is no per-row recovery.
func (s *Stepper) Step() ([]Row, error) {
	if !s.prepared {
		return nil, ErrNotPrepared
	}
	if !s.started {
		s.rows = s.startRows
		s.started = true
	}

	s.generation++
	s.emit(Event{Kind: EventStepStarted, Rows: len(s.rows)})

	next, err := s.callRows(s.rows)
	if err != nil {
		s.emit(Event{Kind: EventStepFailed, Err: err})
		return nil, err
	}

	s.rows = next
	s.emit(Event{Kind: EventStepFinished, Rows: len(next)})
	if len(next) == 0 {
		s.emit(Event{Kind: EventWalkFinished})
	}
	return next, nil
}

// callRows executes a full generation, consolidating merge-addressed rows
// first when ConcatAware is set.
func (s *Stepper) callRows(rows []Row) ([]Row, error) {
	if s.ConcatAware {
		rows = s.rowConcat(rows)
	}

	var all []Row
	for _, row := range rows {
		next, err := s.callOne(row.Caller, row.Args)
		if err != nil {
			return nil, err
		}
		s.emit(Event{
			Kind:       EventRowExecuted,
			Caller:     row.Caller.DisplayName(),
			CallerKind: row.Caller.Kind().String(),
			Rows:       len(next),
		})
		all = append(all, next...)
	}
	return all, nil
}

// callOne dispatches a single row by the shape of its target and returns
// the successor rows it produces.
func (s *Stepper) callOne(c Caller, akw *ArgsPack) ([]Row, error) {
	switch c.Kind() {
	case CallerEmpty:
		return s.endBranch(c, akw), nil
	case CallerPartial:
		return s.callPartial(c.partial, akw)
	case CallerNode:
		return s.callUnit(c.unit, akw)
	case CallerEdge:
		return s.callEdge(c.edge, akw)
	case CallerFunc:
		return s.callFunc(c.fn, akw)
	default:
		// Unrecognized targets are not an error: the row falls through
		// to a terminal row, which ends it on the next generation.
		// Lenient on purpose, and capable of masking a caller mistake.
		return []Row{{Caller: EmptyCaller(), Args: akw}}, nil
	}
}

// callUnit treats the unit as the A node of its outgoing connections.
// Rather than calling the unit once, each connection's HalfCall runs the
// A side and reifies the wire+B remainder: A executes once per edge, not
// once per unit. A unit with no outgoing edges is a leaf and terminates.
func (s *Stepper) callUnit(u *Unit, akw *ArgsPack) ([]Row, error) {
	conns := s.graph.ConnectionsFor(u)
	if len(conns) == 0 {
		return u.Leaf(s, akw)
	}

	rows := make([]Row, 0, len(conns))
	for _, conn := range conns {
		partial, res, err := conn.HalfCall(akw)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{Caller: PartialCaller(partial), Args: res})
	}
	return rows, nil
}

// callPartial runs the wire+B remainder. B's raw result feeds the units
// that follow B; if nothing follows, the branch terminates with it.
func (s *Stepper) callPartial(p *PartialConnection, akw *ArgsPack) ([]Row, error) {
	res, err := p.StepperCall(akw)
	if err != nil {
		return nil, err
	}
	resPack := Pack(res)

	bConns := p.Connections(s.graph)
	if len(bConns) == 0 {
		return s.endBranch(PartialCaller(p), resPack), nil
	}

	items := make([]any, 0, len(bConns))
	for _, conn := range bConns {
		items = append(items, conn.B)
	}
	return expand(items, resPack), nil
}

// callEdge handles a connection used directly as a raw target: only the A
// side executes, and the result fans out over the source units of B's
// outgoing edges.
func (s *Stepper) callEdge(e *Connection, akw *ArgsPack) ([]Row, error) {
	res, err := e.StepperCall(akw)
	if err != nil {
		return nil, err
	}
	resPack := Pack(res)

	tip := s.graph.ConnectionsFor(e.B)
	if len(tip) == 0 {
		return s.endBranch(EdgeCaller(e), resPack), nil
	}

	items := make([]any, 0, len(tip))
	for _, conn := range tip {
		items = append(items, conn.A)
	}
	return expand(items, resPack), nil
}

// callFunc handles a raw callable: call it directly, then fan out over
// its own outgoing edges, resolved through the graph's callable index.
func (s *Stepper) callFunc(fn any, akw *ArgsPack) ([]Row, error) {
	res, err := invoke(fn, akw.Args, akw.Kwargs)
	if err != nil {
		return nil, err
	}
	resPack := Pack(res)

	var conns []*Connection
	if u, ok := s.graph.unitForFunc(fn); ok {
		conns = s.graph.ConnectionsFor(u)
	}
	if len(conns) == 0 {
		return s.endBranch(FuncCaller(fn), resPack), nil
	}

	items := make([]any, 0, len(conns))
	for _, conn := range conns {
		items = append(items, conn)
	}
	return expand(items, resPack), nil
}

// expand fans items out into rows sharing one pack. A nested []any group
// is flattened one level; an empty input is "branch terminated", not an
// error.
func expand(items []any, akw *ArgsPack) []Row {
	if len(items) == 0 {
		return nil
	}
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		if group, ok := item.([]any); ok {
			for _, inner := range group {
				rows = append(rows, Row{Caller: AsCaller(inner), Args: akw})
			}
			continue
		}
		rows = append(rows, Row{Caller: AsCaller(item), Args: akw})
	}
	return rows
}

// mergeAddr addresses one consolidation bucket. Rows to a merge node
// share the destination key alone; rows to anything else keep their row
// index, so unrelated branches reaching the same non-merge node in one
// generation are never combined.
type mergeAddr struct {
	key   string
	index int
}

// rowConcat consolidates a generation's fan-in: rows addressed to the
// same merge destination collapse into a single row whose pack is the
// concatenation of every contributing pack, in arrival order.
//
// Partials are addressed by their (wire function, B) value pair rather
// than instance identity: distinct partials heading into the same wire+B
// are one destination.
func (s *Stepper) rowConcat(rows []Row) []Row {
	unique := make(map[string]bool)
	buckets := make(map[mergeAddr][]Row)
	order := make([]mergeAddr, 0, len(rows))

	for i, row := range rows {
		key := uniqueKey(row.Caller)
		unique[key] = true

		addr := mergeAddr{key: key, index: -1}
		if !row.Caller.MergeNode() {
			addr.index = i
		}
		if _, ok := buckets[addr]; !ok {
			order = append(order, addr)
		}
		buckets[addr] = append(buckets[addr], row)
	}

	if len(unique) == len(rows) {
		return rows
	}

	out := make([]Row, 0, len(order))
	for _, addr := range order {
		calls := buckets[addr]
		if len(calls) == 1 {
			out = append(out, calls[0])
			continue
		}
		packs := make([]*ArgsPack, len(calls))
		for i, call := range calls {
			packs[i] = call.Args
		}
		out = append(out, Row{
			Caller: calls[len(calls)-1].Caller,
			Args:   Merge(packs...),
		})
	}
	return out
}

// uniqueKey returns the consolidation identity of a caller. A partial is
// keyed by value over (wire, B) so transient instances coincide.
func uniqueKey(c Caller) string {
	if c.Kind() == CallerPartial {
		wb := c.partial.wireB()
		return fmt.Sprintf("wire:%x|b:%s", wb.wire, wb.b)
	}
	return c.id()
}

// endBranch records a terminal pack. With stashing enabled the pack is
// appended under its caller and the branch produces no further rows; with
// stashing disabled a single empty-caller row is returned instead so the
// caller can detect termination without persistent storage.
func (s *Stepper) endBranch(c Caller, akw *ArgsPack) []Row {
	s.emit(Event{
		Kind:       EventBranchEnded,
		Caller:     c.DisplayName(),
		CallerKind: c.Kind().String(),
	})

	if !s.StashEnds {
		return []Row{{Caller: EmptyCaller(), Args: akw}}
	}

	key := c.id()
	bucket, ok := s.stash[key]
	if !ok {
		bucket = &stashBucket{caller: c}
		s.stash[key] = bucket
		s.stashOrder = append(s.stashOrder, key)
	}
	bucket.packs = append(bucket.packs, akw)
	return nil
}

func (s *Stepper) resetStash() {
	s.stash = make(map[string]*stashBucket)
	s.stashOrder = nil
}

// Flush returns every stashed entry and clears the stash (destructive
// read). Entries appear in first-termination order.
func (s *Stepper) Flush() []StashEntry {
	entries := s.Peek()
	s.resetStash()
	return entries
}

// Peek returns the stashed entries without clearing them.
func (s *Stepper) Peek() []StashEntry {
	entries := make([]StashEntry, 0, len(s.stashOrder))
	for _, key := range s.stashOrder {
		bucket := s.stash[key]
		packs := make([]*ArgsPack, len(bucket.packs))
		copy(packs, bucket.packs)
		entries = append(entries, StashEntry{Caller: bucket.caller, Packs: packs})
	}
	return entries
}

// StashFor returns the packs stashed under a target, in arrival order.
func (s *Stepper) StashFor(target any) []*ArgsPack {
	bucket, ok := s.stash[AsCaller(target).id()]
	if !ok {
		return nil
	}
	packs := make([]*ArgsPack, len(bucket.packs))
	copy(packs, bucket.packs)
	return packs
}

// Iterator returns a pull-style sequence over generations. It stops the
// first time a step yields zero rows; do not use it unbounded on a cyclic
// graph, which never does.
func (s *Stepper) Iterator() *WalkIterator {
	return &WalkIterator{stepper: s}
}

// RunToEnd steps until the frontier is empty. A positive limit bounds the
// number of generations, which is the caller's only protection on a
// cyclic graph; limit <= 0 means unbounded.
func (s *Stepper) RunToEnd(limit int) error {
	for n := 0; limit <= 0 || n < limit; n++ {
		rows, err := s.Step()
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
	}
	return nil
}

// WalkIterator pulls generations from a stepper until one is empty.
type WalkIterator struct {
	stepper *Stepper
	done    bool
	err     error
}

// Next advances one generation. It returns false once a step produces no
// rows or fails; check Err afterwards.
func (it *WalkIterator) Next() ([]Row, bool) {
	if it.done {
		return nil, false
	}
	rows, err := it.stepper.Step()
	if err != nil {
		it.err = err
		it.done = true
		return nil, false
	}
	if len(rows) == 0 {
		it.done = true
		return nil, false
	}
	return rows, true
}

// Err returns the error that stopped the iterator, if any.
func (it *WalkIterator) Err() error {
	return it.err
}
