// Package facts holds the immutable, point-in-time data about a recipient
// that conditions are evaluated against.
package facts

import (
	"encoding/json"
	"sort"
)

// Snapshot maps fact names to typed values. It is immutable once built;
// nested maps are flattened into dot paths ("address.city").
type Snapshot struct {
	values map[string]Value
}

// New copies raw into a snapshot. Later changes to raw are not observed.
func New(raw map[string]any) Snapshot {
	s := Snapshot{values: make(map[string]Value, len(raw))}
	flatten("", raw, s.values)
	return s
}

func flatten(prefix string, raw map[string]any, out map[string]Value) {
	for key, val := range raw {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flatten(name, nested, out)
			continue
		}
		out[name] = Of(val)
	}
}

// Empty is a snapshot with no facts.
func Empty() Snapshot { return Snapshot{} }

// Get looks a fact up. A fact stored as JSON null is reported as absent.
func (s Snapshot) Get(name string) (Value, bool) {
	v, ok := s.values[name]
	if !ok || v.IsNull() {
		return Value{}, false
	}
	return v, true
}

func (s Snapshot) Len() int { return len(s.values) }

// Names returns the fact names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map returns a fresh plain map of the facts.
func (s Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for name, v := range s.values {
		out[name] = v.Interface()
	}
	return out
}

// With returns a new snapshot with overrides applied on top of s.
func (s Snapshot) With(overrides map[string]any) Snapshot {
	next := Snapshot{values: make(map[string]Value, len(s.values)+len(overrides))}
	for name, v := range s.values {
		next.values[name] = v
	}
	flatten("", overrides, next.values)
	return next
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Map())
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = New(raw)
	return nil
}
