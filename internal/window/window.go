package window

import (
	"strconv"
	"strings"
	"time"

	"github.com/AngelCh415/mailmetrics/internal/models"
)

const (
	TokenAll        = "all"
	customPrefix    = "custom:"
	dateLayout      = "2006-01-02"
	DefaultAllCap   = 730
	DefaultRange    = "30d"
	endOfDayOffset  = 24*time.Hour - time.Millisecond
	hoursPerDay     = 24
	prevYearDayDiff = 365
)

var Presets = []int{30, 60, 90, 120, 180, 365}

type CompareMode string

const (
	CompareNone       CompareMode = "none"
	ComparePrevPeriod CompareMode = "prev-period"
	ComparePrevYear   CompareMode = "prev-year"
)

// ParseCompareMode treats the empty string as CompareNone.
func ParseCompareMode(s string) (CompareMode, bool) {
	switch CompareMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompareNone:
		return CompareNone, true
	case ComparePrevPeriod:
		return ComparePrevPeriod, true
	case ComparePrevYear:
		return ComparePrevYear, true
	}
	return CompareNone, false
}

type TokenKind int

const (
	KindPreset TokenKind = iota
	KindAll
	KindCustom
)

type Token struct {
	Kind     TokenKind
	Days     int
	From, To time.Time
}

// ParseToken reads "30d".."365d", "all" or "custom:<from>:<to>". Custom dates are
// calendar dates interpreted in loc; inverted spans are swapped.
func ParseToken(s string, loc *time.Location) (Token, bool) {
	s = strings.TrimSpace(s)
	if s == TokenAll {
		return Token{Kind: KindAll}, true
	}
	if strings.HasPrefix(s, customPrefix) {
		parts := strings.Split(strings.TrimPrefix(s, customPrefix), ":")
		if len(parts) != 2 {
			return Token{}, false
		}
		from, err := time.ParseInLocation(dateLayout, parts[0], loc)
		if err != nil {
			return Token{}, false
		}
		to, err := time.ParseInLocation(dateLayout, parts[1], loc)
		if err != nil {
			return Token{}, false
		}
		if to.Before(from) {
			from, to = to, from
		}
		return Token{Kind: KindCustom, From: from, To: to}, true
	}
	if n, ok := presetDays(s); ok {
		return Token{Kind: KindPreset, Days: n}, true
	}
	return Token{}, false
}

func presetDays(s string) (int, bool) {
	if !strings.HasSuffix(s, "d") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
	if err != nil {
		return 0, false
	}
	for _, p := range Presets {
		if p == n {
			return n, true
		}
	}
	return 0, false
}

// Bounds anchors relative ranges to the data: Reference is the latest send
// across the dataset (or now when empty), Earliest the first one.
type Bounds struct {
	Earliest  time.Time `json:"earliest"`
	Reference time.Time `json:"reference"`
}

func (b Bounds) Empty() bool { return b.Earliest.IsZero() }

func BoundsOf(campaigns []models.Campaign, flows []models.FlowEmail, now time.Time) Bounds {
	var b Bounds
	see := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if b.Earliest.IsZero() || t.Before(b.Earliest) {
			b.Earliest = t
		}
		if b.Reference.IsZero() || t.After(b.Reference) {
			b.Reference = t
		}
	}
	for _, c := range campaigns {
		see(c.SentAt)
	}
	for _, f := range flows {
		see(f.SentAt)
	}
	if b.Reference.IsZero() {
		b.Reference = now
	}
	return b
}

type Resolver struct {
	bounds       Bounds
	allCapDays   int
	defaultRange string
}

type Option func(*Resolver)

func WithAllCap(days int) Option {
	return func(r *Resolver) {
		if days > 0 {
			r.allCapDays = days
		}
	}
}

func WithDefaultRange(token string) Option {
	return func(r *Resolver) {
		if _, ok := presetDays(token); ok {
			r.defaultRange = token
		}
	}
}

func NewResolver(b Bounds, opts ...Option) Resolver {
	r := Resolver{bounds: b, allCapDays: DefaultAllCap, defaultRange: DefaultRange}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func (r Resolver) Bounds() Bounds       { return r.bounds }
func (r Resolver) Reference() time.Time { return r.bounds.Reference }

// Resolve turns a range token into a concrete window. Unparsable tokens fall
// back to the default preset.
func (r Resolver) Resolve(token string) models.DateWindow {
	ref := r.bounds.Reference
	t, ok := ParseToken(token, ref.Location())
	if !ok {
		t, _ = ParseToken(r.defaultRange, ref.Location())
	}
	switch t.Kind {
	case KindCustom:
		return models.DateWindow{Start: StartOfDay(t.From), End: EndOfDay(t.To)}
	case KindAll:
		n := r.allCapDays
		if !r.bounds.Empty() {
			if d := DaysBetween(r.bounds.Earliest, ref); d < n {
				n = d
			}
		} else {
			n = 1
		}
		return Trailing(ref, n)
	default:
		return Trailing(ref, t.Days)
	}
}

// Trailing is the n calendar days ending on ref's day.
func Trailing(ref time.Time, n int) models.DateWindow {
	if n < 1 {
		n = 1
	}
	return models.DateWindow{
		Start: StartOfDay(ref).AddDate(0, 0, -(n - 1)),
		End:   EndOfDay(ref),
	}
}

// CompareOffsetDays is how far back the comparison window sits.
func CompareOffsetDays(w models.DateWindow, mode CompareMode) int {
	switch mode {
	case ComparePrevPeriod:
		return w.Days()
	case ComparePrevYear:
		return prevYearDayDiff
	}
	return 0
}

// Compare returns the comparison window for w; ok is false for CompareNone.
// prev-period is contiguous with w and of the same length, prev-year sits
// exactly 365 days earlier.
func Compare(w models.DateWindow, mode CompareMode) (models.DateWindow, bool) {
	n := CompareOffsetDays(w, mode)
	if n == 0 {
		return models.DateWindow{}, false
	}
	return models.DateWindow{
		Start: StartOfDay(w.Start).AddDate(0, 0, -n),
		End:   EndOfDay(w.End.AddDate(0, 0, -n)),
	}, true
}

// WindowAvailable reports whether the comparison window of w is fully covered
// by data. Coverage is by calendar day, so a first send at any time of day
// covers that whole day. Partial coverage is treated as unavailable.
func (r Resolver) WindowAvailable(w models.DateWindow, mode CompareMode) bool {
	if r.bounds.Empty() {
		return false
	}
	cw, ok := Compare(w, mode)
	if !ok {
		return false
	}
	return !cw.Start.Before(StartOfDay(r.bounds.Earliest))
}

// CompareAvailable is WindowAvailable for a range token; "all" never has a
// comparison window.
func (r Resolver) CompareAvailable(token string, mode CompareMode) bool {
	if IsAll(token) {
		return false
	}
	return r.WindowAvailable(r.Resolve(token), mode)
}

func IsAll(token string) bool { return strings.TrimSpace(token) == TokenAll }

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(endOfDayOffset)
}

// DaysBetween counts calendar days from a to b inclusive, never less than 1.
func DaysBetween(a, b time.Time) int {
	a = StartOfDay(a)
	b = StartOfDay(b.In(a.Location()))
	if b.Before(a) {
		return 1
	}
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	ua := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	ub := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours()/hoursPerDay) + 1
}
