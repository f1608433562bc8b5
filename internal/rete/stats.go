package rete

// Stats is a snapshot of network size and work counters.
type Stats struct {
	Nodes         int `json:"nodes"`
	AlphaMemories int `json:"alpha_memories"`
	WMEs          int `json:"wmes"`
	Tokens        int `json:"tokens"` // excludes the dummy root token
	Productions   int `json:"productions"`

	LeftActivations  uint64 `json:"left_activations"`
	RightActivations uint64 `json:"right_activations"`
	JoinTests        uint64 `json:"join_tests"`
	LeftUnlinks      uint64 `json:"left_unlinks"`
	RightUnlinks     uint64 `json:"right_unlinks"`
	Relinks          uint64 `json:"relinks"`
	Activations      uint64 `json:"activations"`
	Retractions      uint64 `json:"retractions"`
}

type counters struct {
	left, right  uint64
	joinTests    uint64
	leftUnlinks  uint64
	rightUnlinks uint64
	relinks      uint64
	activations  uint64
	retractions  uint64
}

// Stats returns current sizes and cumulative counters.
func (net *Network) Stats() Stats {
	s := Stats{
		WMEs:             len(net.wmes),
		Productions:      len(net.productions),
		LeftActivations:  net.stats.left,
		RightActivations: net.stats.right,
		JoinTests:        net.stats.joinTests,
		LeftUnlinks:      net.stats.leftUnlinks,
		RightUnlinks:     net.stats.rightUnlinks,
		Relinks:          net.stats.relinks,
		Activations:      net.stats.activations,
		Retractions:      net.stats.retractions,
	}
	for _, n := range net.nodes {
		if n.dead {
			continue
		}
		s.Nodes++
		if n.isMemory() {
			s.Tokens += len(n.items)
		}
	}
	s.Tokens-- // dummy
	for _, am := range net.alphas {
		if !am.dead {
			s.AlphaMemories++
		}
	}
	return s
}

func (net *Network) countActivation(side string) {
	if side == "left" {
		net.stats.left++
	} else {
		net.stats.right++
	}
	activationsTotal.WithLabelValues(side).Inc()
}

func (net *Network) countJoinTest() {
	net.stats.joinTests++
	joinTestsTotal.Inc()
}

func (net *Network) countLink(event string) {
	switch event {
	case "left_unlink":
		net.stats.leftUnlinks++
	case "right_unlink":
		net.stats.rightUnlinks++
	default:
		net.stats.relinks++
	}
	linkEventsTotal.WithLabelValues(event).Inc()
}

func (net *Network) countMatch(kind EventKind) {
	if kind == EventActivate {
		net.stats.activations++
	} else {
		net.stats.retractions++
	}
	matchesTotal.WithLabelValues(string(kind)).Inc()
}
