package model

// HumanReadableDateTime is a render-only description of when an event
// starts relative to now: either in progress, or a preformatted label.
type HumanReadableDateTime struct {
	now   bool
	label string
}

// Now is the value for an event currently in progress.
var Now = HumanReadableDateTime{now: true}

// Later wraps an already formatted label.
func Later(label string) HumanReadableDateTime {
	return HumanReadableDateTime{label: label}
}

func (h HumanReadableDateTime) IsNow() bool {
	return h.now
}

// Label returns the formatted label; it is empty for Now.
func (h HumanReadableDateTime) Label() string {
	return h.label
}

func (h HumanReadableDateTime) String() string {
	if h.now {
		return "Now"
	}
	return h.label
}

func (h HumanReadableDateTime) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}
