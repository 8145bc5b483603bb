package tenants

import (
	"encoding/json"
	"maps"
)

// Tenant is the organization an identity belongs to. The remote API returns
// additional screening configuration alongside id and name; those keys are kept
// verbatim in Settings so the client never drops configuration it does not know.
type Tenant struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Settings map[string]any `json:"-"`
}

// Setting returns a configuration value by key.
func (t *Tenant) Setting(key string) (any, bool) {
	if t == nil || t.Settings == nil {
		return nil, false
	}
	v, ok := t.Settings[key]
	return v, ok
}

// Clone returns a deep copy. Nested JSON objects and arrays in Settings are
// copied too, so a caller mutating its snapshot cannot affect another one.
func (t *Tenant) Clone() *Tenant {
	if t == nil {
		return nil
	}
	c := *t
	if t.Settings != nil {
		c.Settings = cloneValue(t.Settings).(map[string]any)
	}
	return &c
}

// cloneValue copies the container types encoding/json decodes into; scalars
// are immutable and returned as is.
func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func (t Tenant) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Settings)+2)
	maps.Copy(out, t.Settings)
	out["id"] = t.ID
	out["name"] = t.Name
	return json.Marshal(out)
}

func (t *Tenant) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Tenant{}
	for k, v := range raw {
		switch k {
		case "id":
			if err := json.Unmarshal(v, &t.ID); err != nil {
				return err
			}
		case "name":
			if err := json.Unmarshal(v, &t.Name); err != nil {
				return err
			}
		default:
			var value any
			if err := json.Unmarshal(v, &value); err != nil {
				return err
			}
			if t.Settings == nil {
				t.Settings = make(map[string]any)
			}
			t.Settings[k] = value
		}
	}
	return nil
}
