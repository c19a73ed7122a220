package pipeline

import "slices"

// Label is a per-cycle stage marker of an instruction instance.
type Label string

// Trace labels.
const (
	LabelIF     Label = "IF"
	LabelID     Label = "ID"
	LabelEX     Label = "EX"
	LabelMEM    Label = "MEM"
	LabelWB     Label = "WB"
	LabelStall  Label = "-"
	LabelSquash Label = "X"
)

// Observation is one label given to one instruction instance in a cycle.
type Observation struct {
	Seq   uint64
	PC    uint32
	Label Label
}

// History is the stage history of one fetched instruction instance. The
// i-th label was recorded in cycle FirstCycle+i.
type History struct {
	Seq        uint64
	PC         uint32
	Text       string
	FirstCycle uint64
	Labels     []Label
}

// Trace records stage histories keyed by fetch sequence number.
type Trace struct {
	histories []*History
	bySeq     map[uint64]*History
	cycles    uint64
	frozen    bool
}

// NewTrace creates an empty trace.
func NewTrace() *Trace {
	return &Trace{bySeq: make(map[uint64]*History)}
}

// begin opens the history of a newly fetched instance.
func (t *Trace) begin(seq uint64, pc uint32, text string, cycle uint64) {
	if t.frozen {
		return
	}

	h := &History{Seq: seq, PC: pc, Text: text, FirstCycle: cycle}
	t.histories = append(t.histories, h)
	t.bySeq[seq] = h
}

// record appends a label to the instance's history.
func (t *Trace) record(obs Observation) {
	if t.frozen {
		return
	}

	if h, ok := t.bySeq[obs.Seq]; ok {
		h.Labels = append(h.Labels, obs.Label)
	}
}

func (t *Trace) tick(cycle uint64) {
	if !t.frozen {
		t.cycles = cycle
	}
}

func (t *Trace) freeze() {
	t.frozen = true
}

// Cycles returns the number of cycles recorded.
func (t *Trace) Cycles() uint64 {
	return t.cycles
}

// Histories returns a copy of every instance history in fetch order.
func (t *Trace) Histories() []History {
	out := make([]History, len(t.histories))
	for i, h := range t.histories {
		out[i] = *h
		out[i].Labels = slices.Clone(h.Labels)
	}
	return out
}

// Labels returns the labels of all instances fetched from pc, concatenated
// in fetch order.
func (t *Trace) Labels(pc uint32) []Label {
	var labels []Label
	for _, h := range t.histories {
		if h.PC == pc {
			labels = append(labels, h.Labels...)
		}
	}
	return labels
}

// Text returns the display text recorded for pc, or "" if pc was never
// fetched.
func (t *Trace) Text(pc uint32) string {
	for _, h := range t.histories {
		if h.PC == pc {
			return h.Text
		}
	}
	return ""
}
