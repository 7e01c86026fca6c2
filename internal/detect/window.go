package detect

import "time"

// slideWindow runs a two-pointer scan over n time-ordered items. For every
// right edge r it calls add(r), evicts items older than width via remove, and
// then calls visit(l, r) with the current inclusive window [l, r].
func slideWindow(n int, at func(i int) time.Time, width time.Duration, add, remove func(i int), visit func(l, r int)) {
	l := 0
	for r := 0; r < n; r++ {
		add(r)
		for at(r).Sub(at(l)) > width {
			remove(l)
			l++
		}
		visit(l, r)
	}
}
