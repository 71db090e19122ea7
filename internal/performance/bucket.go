package performance

import "time"

// bucketKey derives a tuple-of-ints bucket key from ts for the given
// interval. Keys are compared as plain int slices rather than via any
// datetime comparison, and Week uses the ISO week number rather than a
// calendar-month split.
func bucketKey(ts time.Time, interval RecordingInterval) []int {
	ts = ts.UTC()
	y, mo, d := ts.Date()

	switch interval {
	case Tick:
		return []int{y, int(mo), d, ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond()}
	case Second:
		return []int{y, int(mo), d, ts.Hour(), ts.Minute(), ts.Second()}
	case Minute:
		return []int{y, int(mo), d, ts.Hour(), ts.Minute()}
	case Hour:
		return []int{y, int(mo), d, ts.Hour()}
	case Day:
		return []int{y, int(mo), d}
	case Week:
		isoYear, isoWeek := ts.ISOWeek()
		return []int{isoYear, isoWeek}
	case Month:
		return []int{y, int(mo)}
	default:
		return []int{y, int(mo), d, ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond()}
	}
}

func equalBucket(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
