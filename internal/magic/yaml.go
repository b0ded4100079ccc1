package magic

import "fmt"

// UnmarshalYAML accepts both `h1: 1020325451` and `h1: "100-200"`.
func (r *Range) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	var text string
	switch v := raw.(type) {
	case string:
		text = v
	case int, int64, uint64, uint32, uint:
		text = fmt.Sprint(v)
	default:
		return fmt.Errorf("%w: unsupported YAML value %v", ErrInvalidRange, raw)
	}
	return r.UnmarshalText([]byte(text))
}

// MarshalYAML renders degenerate ranges as integers and others as "S-E".
func (r Range) MarshalYAML() (any, error) {
	if r.Degenerate() {
		return r.Start, nil
	}
	return r.String(), nil
}
