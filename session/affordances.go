package session

import "kydx-console/chat"

// Affordance is a user-triggerable action whose visibility depends on state.
type Affordance string

const (
	MyData       Affordance = "my_data"
	Visualize    Affordance = "visualize"
	Infograph    Affordance = "infograph"
	Summarize    Affordance = "summarize"
	DirectorsCut Affordance = "directors_cut"
)

// AllAffordances lists every action in display order.
var AllAffordances = []Affordance{MyData, Visualize, Infograph, Summarize, DirectorsCut}

// ParseAffordance maps a name to an Affordance.
func ParseAffordance(name string) (Affordance, bool) {
	for _, a := range AllAffordances {
		if string(a) == name {
			return a, true
		}
	}
	return "", false
}

// Label is the full display label of an affordance.
func (a Affordance) Label() string {
	switch a {
	case MyData:
		return "My Data?"
	case Visualize:
		return "Visualize"
	case Infograph:
		return "Infograph"
	case Summarize:
		return "Summarize"
	case DirectorsCut:
		return "Director's Cut"
	}
	return string(a)
}

// Affordances is the set of actions currently offered.
type Affordances struct {
	MyData       bool `json:"my_data"`
	Visualize    bool `json:"visualize"`
	Infograph    bool `json:"infograph"`
	Summarize    bool `json:"summarize"`
	DirectorsCut bool `json:"directors_cut"`
}

// Has reports whether a is offered.
func (s Affordances) Has(a Affordance) bool {
	switch a {
	case MyData:
		return s.MyData
	case Visualize:
		return s.Visualize
	case Infograph:
		return s.Infograph
	case Summarize:
		return s.Summarize
	case DirectorsCut:
		return s.DirectorsCut
	}
	return false
}

// List returns the offered actions in display order.
func (s Affordances) List() []Affordance {
	var out []Affordance
	for _, a := range AllAffordances {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// Any reports whether at least one action is offered.
func (s Affordances) Any() bool {
	return len(s.List()) > 0
}

// permitted applies the visibility rule without the busy check. The
// single-flight guard covers busy for callers already holding it.
func (st *state) permitted() Affordances {
	if !st.introDone || st.wizard != nil {
		return Affordances{}
	}
	out := Affordances{MyData: true}
	if hasUserMessage(st.log) {
		out.Visualize = true
		out.Infograph = true
		out.Summarize = true
		out.DirectorsCut = st.lastTableDataRef != "" && st.directorsCutAvailable
	}
	return out
}

// visible is what the view may show: nothing while busy or wizarding.
func (st *state) visible() Affordances {
	if st.busy {
		return Affordances{}
	}
	return st.permitted()
}

func hasUserMessage(log []chat.Message) bool {
	for _, m := range log {
		if m.IsUser() {
			return true
		}
	}
	return false
}
