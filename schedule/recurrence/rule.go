package recurrence

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Frequency is the base repetition period of a simple rule.
type Frequency string

const (
	Yearly  Frequency = "YEARLY"
	Monthly Frequency = "MONTHLY"
	Weekly  Frequency = "WEEKLY"
	Daily   Frequency = "DAILY"
)

// rruleFrequencies maps Frequency values onto rrule-go constants.
var rruleFrequencies = map[Frequency]rrule.Frequency{
	Yearly:  rrule.YEARLY,
	Monthly: rrule.MONTHLY,
	Weekly:  rrule.WEEKLY,
	Daily:   rrule.DAILY,
}

// rruleWeekdays maps 0-based weekday indices (Monday = 0) onto rrule-go
// weekday constants, for byweekday params.
var rruleWeekdays = []rrule.Weekday{
	rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU,
}

var weekdayNames = []string{"MO", "TU", "WE", "TH", "FR", "SA", "SU"}

// Rule defines how a generator repeats its base timespan.
//
// A simple rule is Frequency plus optional Params. Params follow the format
//
//	param = [key:value;]*
//	value = int[,int]*
//
// with keys count, interval, bysetpos, bymonth, bymonthday, byyearday,
// byweekno, byweekday, byhour, byminute, bysecond and byeaster.
//
// ComplexRule, when set, is a raw RRULE body (e.g. "FREQ=MONTHLY;BYDAY=%nthday%")
// that overrides Frequency and Params. It may contain placeholders which are
// substituted from the expansion start time before parsing. If the substituted
// string does not parse, the rule falls back to Frequency+Params.
type Rule struct {
	// Name is a short friendly label for this kind of repetition.
	Name string

	Frequency Frequency

	// Params are extra inclusion parameters for the simple rule.
	Params string

	// ComplexRule overrides all other settings when parseable.
	ComplexRule string
}

// Equal reports whether two rules would expand identically.
func (r *Rule) Equal(other *Rule) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Frequency == other.Frequency &&
		r.Params == other.Params &&
		r.ComplexRule == other.ComplexRule
}

func (r *Rule) String() string {
	if r == nil {
		return "one-off"
	}
	if r.Name != "" {
		return r.Name
	}
	return strings.ToLower(string(r.Frequency))
}

// ParsedParams parses the Params string into option values. Malformed
// segments are skipped rather than rejected, matching the permissive
// behaviour callers rely on for hand-entered rules.
func (r *Rule) ParsedParams() map[string][]int {
	out := make(map[string][]int)
	if r.Params == "" {
		return out
	}
	for _, segment := range strings.Split(r.Params, ";") {
		parts := strings.SplitN(segment, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(strings.ToLower(parts[0]))
		var values []int
		valid := true
		for _, raw := range strings.Split(parts[1], ",") {
			n, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				valid = false
				break
			}
			values = append(values, n)
		}
		if valid && key != "" && len(values) > 0 {
			out[key] = values
		}
	}
	return out
}

// RRuleSet builds the rrule set describing this rule anchored at dtstart.
func (r *Rule) RRuleSet(dtstart time.Time) (*rrule.Set, error) {
	if r.ComplexRule != "" {
		if set, err := r.complexRRuleSet(dtstart); err == nil {
			return set, nil
		}
		// Unparseable complex rules fall back to the simple rule.
	}
	return r.simpleRRuleSet(dtstart)
}

func (r *Rule) simpleRRuleSet(dtstart time.Time) (*rrule.Set, error) {
	freq, ok := rruleFrequencies[r.Frequency]
	if !ok {
		return nil, fmt.Errorf("unknown rule frequency %q", r.Frequency)
	}

	opt := rrule.ROption{Freq: freq, Dtstart: dtstart}
	for key, values := range r.ParsedParams() {
		switch key {
		case "count":
			opt.Count = values[0]
		case "interval":
			opt.Interval = values[0]
		case "bysetpos":
			opt.Bysetpos = values
		case "bymonth":
			opt.Bymonth = values
		case "bymonthday":
			opt.Bymonthday = values
		case "byyearday":
			opt.Byyearday = values
		case "byweekno":
			opt.Byweekno = values
		case "byweekday":
			for _, v := range values {
				if v >= 0 && v < len(rruleWeekdays) {
					opt.Byweekday = append(opt.Byweekday, rruleWeekdays[v])
				}
			}
		case "byhour":
			opt.Byhour = values
		case "byminute":
			opt.Byminute = values
		case "bysecond":
			opt.Bysecond = values
		case "byeaster":
			opt.Byeaster = values
		}
	}

	rule, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s rule: %w", r.Frequency, err)
	}
	set := &rrule.Set{}
	set.RRule(rule)
	return set, nil
}

func (r *Rule) complexRRuleSet(dtstart time.Time) (*rrule.Set, error) {
	body := SubstitutePlaceholders(r.ComplexRule, dtstart)
	body = strings.TrimPrefix(strings.TrimSpace(body), "RRULE:")

	opt, err := rrule.StrToROption(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse complex rule %q: %w", body, err)
	}
	opt.Dtstart = dtstart

	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("failed to build complex rule %q: %w", body, err)
	}
	set := &rrule.Set{}
	set.RRule(rule)
	return set, nil
}

// SubstitutePlaceholders replaces the date-derived placeholders of a complex
// rule template with values computed from dtstart. The nth-weekday counters
// make templates like "every %nthday% of the month" possible:
//
//	%nthday%  - e.g. "2FR" for the second Friday
//	%-nthday% - e.g. "-1FR" for the last Friday
func SubstitutePlaceholders(template string, dtstart time.Time) string {
	weekday := weekdayNames[(int(dtstart.Weekday())+6)%7]
	nth := 1 + dtstart.Day()/7

	daysInMonth := time.Date(dtstart.Year(), dtstart.Month()+1, 0, 0, 0, 0, 0, dtstart.Location()).Day()
	daysFromEnd := daysInMonth - dtstart.Day()
	minusNth := -1 - daysFromEnd/7

	replacer := strings.NewReplacer(
		"%date%", dtstart.Format("20060102"),
		"%day%", dtstart.Format("02"),
		"%month%", dtstart.Format("01"),
		"%year%", dtstart.Format("2006"),
		"%time%", dtstart.Format("150405"),
		"%datetime%", dtstart.Format("20060102T150405"),
		"%nthday%", fmt.Sprintf("%d%s", nth, weekday),
		"%-nthday%", fmt.Sprintf("%d%s", minusNth, weekday),
	)
	return replacer.Replace(template)
}
