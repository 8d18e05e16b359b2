package alignment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// overrideFile is the on-disk form:
//
//	overrides:
//	  - event_id: 3f1c...
//	    kind: pin_price
//	    offset: 24h
//	    price: 0.0042
type overrideFile struct {
	Overrides []overrideEntry `yaml:"overrides"`
}

type overrideEntry struct {
	EventID string   `yaml:"event_id"`
	Kind    string   `yaml:"kind"`
	Reason  string   `yaml:"reason"`
	Offset  string   `yaml:"offset"`
	Price   *float64 `yaml:"price"`
	Label   string   `yaml:"label"`
}

// ParseOverrides decodes and validates an override document.
func ParseOverrides(data []byte) ([]Override, error) {
	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode overrides: %w", err)
	}

	out := make([]Override, 0, len(f.Overrides))
	for i, e := range f.Overrides {
		o, err := e.toOverride()
		if err != nil {
			return nil, fmt.Errorf("override %d: %w", i, err)
		}
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("override %d: %w", i, err)
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadOverrides reads an override file. An empty path yields no overrides.
func LoadOverrides(path string) ([]Override, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides %s: %w", path, err)
	}
	return ParseOverrides(data)
}

func (e overrideEntry) toOverride() (Override, error) {
	switch e.Kind {
	case "exclude":
		return Exclude{EventID: e.EventID, Reason: e.Reason}, nil
	case "pin_price":
		if e.Price == nil {
			return nil, fmt.Errorf("%w: pin_price for %s without price", ErrInvalidOverride, e.EventID)
		}
		return PinPrice{EventID: e.EventID, Offset: Offset(e.Offset), Price: *e.Price}, nil
	case "annotate":
		return Annotate{EventID: e.EventID, Label: e.Label}, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidOverride, e.Kind)
	}
}
