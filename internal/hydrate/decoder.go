// Package hydrate turns loosely typed admin payloads (map[string]any from a
// web editor or chat command) into config structs.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Context names the payload in errors, e.g. Kind "group" and Name "creative".
type Context struct {
	Kind string
	Name string
}

func (c Context) label() string {
	if c.Kind == "" {
		return c.Name
	}
	return c.Kind + "/" + c.Name
}

// Check validates or adjusts the decoded value.
type Check[T any] func(Context, *T) error

// Option configures a Decoder.
type Option[T any] func(*Decoder[T])

// Decoder normalizes a payload then decodes it as JSON into T.
//
// Normalization runs at every map depth: aliased keys are renamed, list
// fields given as "a, b" become ["a", "b"] and range fields given as
// "0,3-5" become [0, 3, 4, 5].
type Decoder[T any] struct {
	aliases map[string]string
	lists   map[string]bool
	ranges  map[string]bool
	strict  bool
	checks  []Check[T]
}

// WithAliases renames keys. When both the alias and its target are present
// the target wins.
func WithAliases[T any](aliases map[string]string) Option[T] {
	return func(d *Decoder[T]) {
		for from, to := range aliases {
			d.aliases[from] = to
		}
	}
}

// WithListFields accepts comma separated strings for the named keys.
func WithListFields[T any](keys ...string) Option[T] {
	return func(d *Decoder[T]) {
		for _, key := range keys {
			d.lists[key] = true
		}
	}
}

// WithRangeFields accepts slot ranges such as "36-39" or "0,2,4-6" for the
// named keys.
func WithRangeFields[T any](keys ...string) Option[T] {
	return func(d *Decoder[T]) {
		for _, key := range keys {
			d.ranges[key] = true
		}
	}
}

// Strict rejects keys T does not declare.
func Strict[T any]() Option[T] {
	return func(d *Decoder[T]) { d.strict = true }
}

// WithCheck runs check after decoding, in registration order.
func WithCheck[T any](check Check[T]) Option[T] {
	return func(d *Decoder[T]) {
		if check != nil {
			d.checks = append(d.checks, check)
		}
	}
}

func NewDecoder[T any](opts ...Option[T]) *Decoder[T] {
	d := &Decoder[T]{
		aliases: map[string]string{},
		lists:   map[string]bool{},
		ranges:  map[string]bool{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode never mutates payload.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, fmt.Errorf("hydrate: %q: payload is nil", ctx.label())
	}
	current, err := clonePayload(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: %q: %w", ctx.label(), err)
	}
	if err := d.normalizeMap(current); err != nil {
		return zero, fmt.Errorf("hydrate: %q: %w", ctx.label(), err)
	}

	buffer, err := json.Marshal(current)
	if err != nil {
		return zero, fmt.Errorf("hydrate: %q: %w", ctx.label(), err)
	}
	dec := json.NewDecoder(bytes.NewReader(buffer))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	var result T
	if err := dec.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode %q: %w", ctx.label(), err)
	}

	for _, check := range d.checks {
		if err := check(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: %q: %w", ctx.label(), err)
		}
	}
	return result, nil
}

func (d *Decoder[T]) normalizeMap(m map[string]any) error {
	for from, to := range d.aliases {
		value, ok := m[from]
		if !ok {
			continue
		}
		delete(m, from)
		if _, taken := m[to]; !taken {
			m[to] = value
		}
	}
	for key, value := range m {
		switch v := value.(type) {
		case string:
			if d.lists[key] {
				m[key] = splitList(v)
			} else if d.ranges[key] {
				expanded, err := expandRange(v)
				if err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				m[key] = expanded
			}
		case map[string]any:
			if err := d.normalizeMap(v); err != nil {
				return fmt.Errorf("%s.%w", key, err)
			}
		case []any:
			for i, item := range v {
				if nested, ok := item.(map[string]any); ok {
					if err := d.normalizeMap(nested); err != nil {
						return fmt.Errorf("%s[%d].%w", key, i, err)
					}
				}
			}
		}
	}
	return nil
}

func splitList(value string) []any {
	out := []any{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandRange(value string) ([]any, error) {
	out := []any{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("bad slot %q", part)
		}
		end := start
		if isRange {
			if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
				return nil, fmt.Errorf("bad slot range %q", part)
			}
		}
		if end < start {
			return nil, fmt.Errorf("slot range %q is reversed", part)
		}
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
	}
	return out, nil
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
