package record

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RepeatCode is the host's recurrence code. 1..9 and 50 repeat from the due
// date, 101..109 and 150 from the completion date. Unknown codes are carried
// through untouched.
type RepeatCode int

const (
	RepeatNone         RepeatCode = 0
	RepeatWeekly       RepeatCode = 1
	RepeatMonthly      RepeatCode = 2
	RepeatYearly       RepeatCode = 3
	RepeatDaily        RepeatCode = 4
	RepeatBiweekly     RepeatCode = 5
	RepeatBimonthly    RepeatCode = 6
	RepeatSemiannually RepeatCode = 7
	RepeatQuarterly    RepeatCode = 8
	RepeatWithParent   RepeatCode = 9
	RepeatAdvanced     RepeatCode = 50

	// RepeatFromCompletion is added to a base code to anchor it to the
	// completion date instead of the due date.
	RepeatFromCompletion RepeatCode = 100
)

// RepeatAnchor says which date a recurrence is computed from.
type RepeatAnchor int

const (
	AnchorNone RepeatAnchor = iota
	AnchorDueDate
	AnchorCompletionDate
	AnchorUnknown
)

func (a RepeatAnchor) String() string {
	switch a {
	case AnchorNone:
		return "none"
	case AnchorDueDate:
		return "due date"
	case AnchorCompletionDate:
		return "completion date"
	default:
		return "unknown"
	}
}

func knownBase(c RepeatCode) bool {
	return (c >= RepeatWeekly && c <= RepeatWithParent) || c == RepeatAdvanced
}

// Anchor returns the date the recurrence is anchored to, or AnchorUnknown for
// codes outside the documented set.
func (c RepeatCode) Anchor() RepeatAnchor {
	switch {
	case c == RepeatNone:
		return AnchorNone
	case knownBase(c):
		return AnchorDueDate
	case c > RepeatFromCompletion && knownBase(c-RepeatFromCompletion):
		return AnchorCompletionDate
	default:
		return AnchorUnknown
	}
}

// Interval strips the anchor and returns the base code (1..9 or 50). It
// returns the code unchanged when the anchor is unknown.
func (c RepeatCode) Interval() RepeatCode {
	if c.Anchor() == AnchorCompletionDate {
		return c - RepeatFromCompletion
	}
	return c
}

// Known reports whether c is part of the documented code set.
func (c RepeatCode) Known() bool { return c.Anchor() != AnchorUnknown }

// IsAdvanced reports whether c needs an advanced repeat phrase.
func (c RepeatCode) IsAdvanced() bool { return c.Interval() == RepeatAdvanced }

func (c RepeatCode) String() string {
	var base string
	switch c.Interval() {
	case RepeatNone:
		return "none"
	case RepeatWeekly:
		base = "weekly"
	case RepeatMonthly:
		base = "monthly"
	case RepeatYearly:
		base = "yearly"
	case RepeatDaily:
		base = "daily"
	case RepeatBiweekly:
		base = "bi-weekly"
	case RepeatBimonthly:
		base = "bi-monthly"
	case RepeatSemiannually:
		base = "semi-annually"
	case RepeatQuarterly:
		base = "quarterly"
	case RepeatWithParent:
		base = "with parent"
	case RepeatAdvanced:
		base = "advanced"
	default:
		return "repeat(" + strconv.Itoa(int(c)) + ")"
	}
	if c.Anchor() == AnchorCompletionDate {
		return base + " from completion"
	}
	return base
}

// AdvancedKind distinguishes the three advanced repeat phrase shapes.
type AdvancedKind int

const (
	AdvancedEveryInterval AdvancedKind = iota + 1 // "Every 3 weeks"
	AdvancedEveryDay                              // "Every Monday", "Every Weekday"
	AdvancedNthWeekday                            // "On the 2nd Tuesday of the month"
)

// AdvancedRepeat is a parsed advanced repeat phrase.
type AdvancedRepeat struct {
	Kind AdvancedKind
	N    int    // interval count or ordinal; -1 means "last"
	Unit string // days, weeks, months, years
	Day  string // Monday..Sunday, Weekday, Weekend
}

var (
	reEveryInterval = regexp.MustCompile(`(?i)^every\s+(\d+)\s+(day|week|month|year)s?$`)
	reEveryDay      = regexp.MustCompile(`(?i)^every\s+(\w+)$`)
	reNthWeekday    = regexp.MustCompile(`(?i)^on\s+the\s+(\w+)\s+(\w+)\s+of\s+the\s+month$`)
)

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var ordinals = map[string]int{
	"1st": 1, "first": 1,
	"2nd": 2, "second": 2,
	"3rd": 3, "third": 3,
	"4th": 4, "fourth": 4,
	"5th": 5, "fifth": 5,
	"last": -1,
}

func canonicalDay(s string, allowGroups bool) (string, bool) {
	for _, d := range weekdays {
		if strings.EqualFold(d, s) {
			return d, true
		}
	}
	if allowGroups {
		for _, g := range []string{"Weekday", "Weekend"} {
			if strings.EqualFold(g, s) {
				return g, true
			}
		}
	}
	return "", false
}

// ParseAdvancedRepeat parses one of
//
//	Every N <days|weeks|months|years>
//	Every <Monday..Sunday|Weekday|Weekend>
//	On the Nth <Monday..Sunday> of the month
func ParseAdvancedRepeat(s string) (AdvancedRepeat, error) {
	s = strings.Join(strings.Fields(s), " ")
	if m := reEveryInterval.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return AdvancedRepeat{}, fmt.Errorf("%w: %q", ErrInvalidAdvancedRepeat, s)
		}
		return AdvancedRepeat{Kind: AdvancedEveryInterval, N: n, Unit: strings.ToLower(m[2]) + "s"}, nil
	}
	if m := reEveryDay.FindStringSubmatch(s); m != nil {
		if d, ok := canonicalDay(m[1], true); ok {
			return AdvancedRepeat{Kind: AdvancedEveryDay, Day: d}, nil
		}
	}
	if m := reNthWeekday.FindStringSubmatch(s); m != nil {
		n, ok := ordinals[strings.ToLower(m[1])]
		d, dayOK := canonicalDay(m[2], false)
		if ok && dayOK {
			return AdvancedRepeat{Kind: AdvancedNthWeekday, N: n, Day: d}, nil
		}
	}
	return AdvancedRepeat{}, fmt.Errorf("%w: %q", ErrInvalidAdvancedRepeat, s)
}

func (a AdvancedRepeat) String() string {
	switch a.Kind {
	case AdvancedEveryInterval:
		return fmt.Sprintf("Every %d %s", a.N, a.Unit)
	case AdvancedEveryDay:
		return "Every " + a.Day
	case AdvancedNthWeekday:
		ord := "last"
		for k, v := range ordinals {
			if v == a.N && len(k) == 3 {
				ord = k
			}
		}
		return fmt.Sprintf("On the %s %s of the month", ord, a.Day)
	default:
		return ""
	}
}
