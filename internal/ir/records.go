package ir

// FactRecord is a journaled fact.
// RetractedSeq is nil while the fact is live.
type FactRecord struct {
	ID           string  `json:"id"`
	Fields       IRArray `json:"fields"`
	AssertedSeq  int64   `json:"asserted_seq"`
	RetractedSeq *int64  `json:"retracted_seq,omitempty"`
}

// Live reports whether the fact has not been retracted.
func (f FactRecord) Live() bool { return f.RetractedSeq == nil }

// ActivationKind distinguishes a new match from the withdrawal of one.
type ActivationKind string

const (
	KindActivate ActivationKind = "activate"
	KindRetract  ActivationKind = "retract"
)

// ActivationRecord is one journaled terminal event.
type ActivationRecord struct {
	Seq          int64          `json:"seq"`
	ActivationID string         `json:"activation_id"`
	Rule         string         `json:"rule"`
	Kind         ActivationKind `json:"kind"`
	Binding      IRObject       `json:"binding"`
	BindingHash  string         `json:"binding_hash"`
	FactIDs      []string       `json:"fact_ids"`
}
