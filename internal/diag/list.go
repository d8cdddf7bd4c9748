package diag

// List is the ordered diagnostic trail of an operation. Fallible operations return a List next to
// their result and callers accumulate every step's List before deciding whether to stop.
type List []Diagnostic

// Add appends d when it is non-nil. It pairs with operations that report at most one diagnostic.
func (l *List) Add(d *Diagnostic) {
	if d != nil {
		*l = append(*l, *d)
	}
}

// Append appends all diagnostics of other
func (l *List) Append(other ...Diagnostic) {
	*l = append(*l, other...)
}

// HasFatal reports whether any diagnostic in l is fatal
func (l List) HasFatal() bool {
	for _, d := range l {
		if d.IsFatal() {
			return true
		}
	}
	return false
}

// Warnings returns how many warnings l holds
func (l List) Warnings() int {
	n := 0
	for _, d := range l {
		if d.Severity == SeverityWarning {
			n++
		}
	}
	return n
}

// StampOrigin sets origin on every diagnostic that has none. Diagnostics with an origin keep it.
func (l List) StampOrigin(origin string) {
	for i := range l {
		if l[i].Origin == "" {
			l[i].Origin = origin
		}
	}
}

// Clone returns a copy of l that shares no backing array with it
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}
