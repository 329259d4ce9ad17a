package clock

import (
	"fmt"
	"time"
)

// Format renders d as m:ss, rounding down to whole seconds.
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// FormatPrecise renders d as m:ss.hh with hundredths, rounding down.
func FormatPrecise(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hundredths := int64(d / (10 * time.Millisecond))
	secs := hundredths / 100
	return fmt.Sprintf("%d:%02d.%02d", secs/60, secs%60, hundredths%100)
}
