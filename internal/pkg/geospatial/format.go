package geospatial

import (
	"fmt"
	"math"
)

// FormatDistance renders meters as "850m" below one kilometre and "2.5km" above.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int64(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}
