package rete

// Match is one complete instantiation of a production.
type Match struct {
	Rule    string
	Token   *Token
	WMEs    []*WME
	Binding Binding
}

// WMEIDs returns the IDs of the matched WMEs in condition order.
func (m Match) WMEIDs() []uint64 {
	ids := make([]uint64, len(m.WMEs))
	for i, w := range m.WMEs {
		ids[i] = w.ID
	}
	return ids
}

// Consumer receives complete matches from a terminal node.
//
// Callbacks run inside propagation and must not call back into the
// network.
type Consumer interface {
	Activate(Match)
	Retract(Match)
}

// ConsumerFuncs adapts two functions to Consumer. Nil functions are skipped.
type ConsumerFuncs struct {
	OnActivate func(Match)
	OnRetract  func(Match)
}

func (c ConsumerFuncs) Activate(m Match) {
	if c.OnActivate != nil {
		c.OnActivate(m)
	}
}

func (c ConsumerFuncs) Retract(m Match) {
	if c.OnRetract != nil {
		c.OnRetract(m)
	}
}

// EventKind tells an activation from a retraction.
type EventKind string

const (
	EventActivate EventKind = "activate"
	EventRetract  EventKind = "retract"
)

// Event is one terminal callback as seen by a Recorder.
type Event struct {
	Kind    EventKind
	Rule    string
	Binding Binding
	WMEIDs  []uint64
}

// Recorder is a Consumer that keeps every callback in order.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Activate(m Match) { r.record(EventActivate, m) }
func (r *Recorder) Retract(m Match)  { r.record(EventRetract, m) }

func (r *Recorder) record(kind EventKind, m Match) {
	r.Events = append(r.Events, Event{
		Kind:    kind,
		Rule:    m.Rule,
		Binding: m.Binding,
		WMEIDs:  m.WMEIDs(),
	})
}

// Reset drops the recorded events.
func (r *Recorder) Reset() { r.Events = nil }

// AddTerminal attaches a terminal under a join node. The terminal is primed
// with the join's current matches, so c sees Activate for each of them
// before AddTerminal returns.
func (net *Network) AddTerminal(parent NodeID, rule string, c Consumer) (NodeID, error) {
	p, err := net.lookup(parent)
	if err != nil {
		return NoNode, err
	}
	if p.kind != KindJoin {
		return NoNode, newError(ErrCodeWrongNodeKind, parent, "terminal parent must be a join, got %s", p.kind)
	}
	if c == nil {
		c = ConsumerFuncs{}
	}

	term := net.newNode(KindTerminal, parent)
	term.rule = rule
	term.consumer = c
	p.children = append(p.children, term.id)
	net.updateFromAbove(p, term)
	return term.id, nil
}

func (net *Network) match(n *node, t *Token) Match {
	return Match{
		Rule:    n.rule,
		Token:   t,
		WMEs:    t.WMEs(),
		Binding: t.binding,
	}
}

func (net *Network) fire(n *node, t *Token) {
	net.countMatch(EventActivate)
	n.consumer.Activate(net.match(n, t))
}

func (net *Network) retract(n *node, t *Token) {
	net.countMatch(EventRetract)
	n.consumer.Retract(net.match(n, t))
}

// Matches returns the current complete matches of a production, in the order
// they were produced.
func (net *Network) Matches(rule string) []Match {
	id, ok := net.productions[rule]
	if !ok {
		return nil
	}
	n := net.nodes[id]
	matches := make([]Match, 0, len(n.items))
	for _, t := range n.items {
		matches = append(matches, net.match(n, t))
	}
	return matches
}
