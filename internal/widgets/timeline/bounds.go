package timeline

import "time"

// Bounds is the inclusive window every subitem picker is limited to.
type Bounds struct {
	Min time.Time
	Max time.Time
}

// BoundsFor derives picker bounds from the parent range. All subitems share
// the same bounds; sibling ranges may overlap.
func BoundsFor(p ParentRange) Bounds {
	return Bounds{Min: Noon(p.Start), Max: Noon(p.End)}
}

// Contains reports whether t's calendar day lies within the bounds.
func (b Bounds) Contains(t time.Time) bool {
	d := dayNumber(t)
	return d >= dayNumber(b.Min) && d <= dayNumber(b.Max)
}

// Allows reports whether every present end of sel lies within the bounds.
func (b Bounds) Allows(sel Selection) bool {
	if sel.Start != nil && !b.Contains(*sel.Start) {
		return false
	}
	if sel.End != nil && !b.Contains(*sel.End) {
		return false
	}
	return true
}

// CanSave reports whether a save may be issued for sel: both ends present.
func CanSave(sel *Selection) bool {
	return sel != nil && sel.Complete()
}

// dayNumber orders calendar days by their wall-clock date, ignoring zone.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
