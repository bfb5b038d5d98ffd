package invgroups

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrInvalidCron wraps every cron parse failure.
var ErrInvalidCron = errors.New("invgroups: invalid cron expression")

// CronSchedule is a parsed five-field cron expression. Each field is a bit
// set of accepted values.
type CronSchedule struct {
	expression string
	minute     uint64
	hour       uint64
	dom        uint64
	month      uint64
	dow        uint64
}

type cronField struct {
	name  string
	min   int
	max   int
	names map[string]int
}

var (
	minuteField = cronField{name: "minute", min: 0, max: 59}
	hourField   = cronField{name: "hour", min: 0, max: 23}
	domField    = cronField{name: "day-of-month", min: 1, max: 31}
	monthField  = cronField{name: "month", min: 1, max: 12, names: map[string]int{
		"JAN": 1, "FEB": 2, "MAR": 3, "APR": 4, "MAY": 5, "JUN": 6,
		"JUL": 7, "AUG": 8, "SEP": 9, "OCT": 10, "NOV": 11, "DEC": 12,
	}}
	// 7 is accepted as an alias for Sunday and folded onto 0.
	dowField = cronField{name: "day-of-week", min: 0, max: 7, names: map[string]int{
		"SUN": 0, "MON": 1, "TUE": 2, "WED": 3, "THU": 4, "FRI": 5, "SAT": 6,
	}}
)

// ParseCron parses "minute hour day-of-month month day-of-week".
func ParseCron(expression string) (*CronSchedule, error) {
	fields := strings.Fields(expression)
	if len(fields) != 5 {
		return nil, fmt.Errorf("%w %q: expected 5 fields, got %d", ErrInvalidCron, expression, len(fields))
	}
	specs := []cronField{minuteField, hourField, domField, monthField, dowField}
	sets := make([]uint64, len(specs))
	for i, spec := range specs {
		set, err := spec.parse(fields[i])
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidCron, expression, err)
		}
		sets[i] = set
	}
	if sets[4]&(1<<7) != 0 {
		sets[4] = (sets[4] &^ (1 << 7)) | 1
	}
	return &CronSchedule{
		expression: strings.Join(fields, " "),
		minute:     sets[0],
		hour:       sets[1],
		dom:        sets[2],
		month:      sets[3],
		dow:        sets[4],
	}, nil
}

// Matches reports whether every field accepts t.
func (s *CronSchedule) Matches(t time.Time) bool {
	if s == nil {
		return false
	}
	return s.minute&(1<<uint(t.Minute())) != 0 &&
		s.hour&(1<<uint(t.Hour())) != 0 &&
		s.dom&(1<<uint(t.Day())) != 0 &&
		s.month&(1<<uint(t.Month())) != 0 &&
		s.dow&(1<<uint(t.Weekday())) != 0
}

// String returns the normalised expression.
func (s *CronSchedule) String() string {
	if s == nil {
		return ""
	}
	return s.expression
}

func (f cronField) parse(field string) (uint64, error) {
	var set uint64
	for _, item := range strings.Split(field, ",") {
		if item == "" {
			return 0, fmt.Errorf("%s: empty list item", f.name)
		}
		bits, err := f.parseItem(item)
		if err != nil {
			return 0, err
		}
		set |= bits
	}
	return set, nil
}

func (f cronField) parseItem(item string) (uint64, error) {
	rangePart, step := item, 1
	if idx := strings.IndexByte(item, '/'); idx >= 0 {
		rangePart = item[:idx]
		n, err := strconv.Atoi(item[idx+1:])
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%s: invalid step in %q", f.name, item)
		}
		step = n
	}

	lo, hi := f.min, f.max
	switch {
	case rangePart == "*":
	case strings.Contains(rangePart, "-"):
		bounds := strings.SplitN(rangePart, "-", 2)
		var err error
		if lo, err = f.value(bounds[0]); err != nil {
			return 0, err
		}
		if hi, err = f.value(bounds[1]); err != nil {
			return 0, err
		}
		if lo > hi {
			return 0, fmt.Errorf("%s: range %q is inverted", f.name, rangePart)
		}
	default:
		v, err := f.value(rangePart)
		if err != nil {
			return 0, err
		}
		lo = v
		if step == 1 {
			hi = v
		}
	}

	var bits uint64
	for v := lo; v <= hi; v += step {
		bits |= 1 << uint(v)
	}
	return bits, nil
}

func (f cronField) value(token string) (int, error) {
	if v, ok := f.names[strings.ToUpper(token)]; ok {
		return v, nil
	}
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid value %q", f.name, token)
	}
	if v < f.min || v > f.max {
		return 0, fmt.Errorf("%s: value %d out of range %d-%d", f.name, v, f.min, f.max)
	}
	return v, nil
}

type cronEntry struct {
	schedule *CronSchedule
	err      error
}

// cronCache memoizes parsed expressions, including failures, so a malformed
// expression is parsed and reported once.
type cronCache struct {
	entries sync.Map
}

// lookup returns the cached entry for expression. first is true for the
// caller that stored the entry.
func (c *cronCache) lookup(expression string) (entry *cronEntry, first bool) {
	key := strings.Join(strings.Fields(expression), " ")
	if cached, ok := c.entries.Load(key); ok {
		return cached.(*cronEntry), false
	}
	schedule, err := ParseCron(key)
	candidate := &cronEntry{schedule: schedule, err: err}
	actual, loaded := c.entries.LoadOrStore(key, candidate)
	return actual.(*cronEntry), !loaded
}

func (c *cronCache) clear() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
}
