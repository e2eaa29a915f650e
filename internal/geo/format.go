package geo

import (
	"fmt"
	"math"
)

// FormatDistance renders a distance in meters for the HUD.
// Below one meter it shows whole centimeters, otherwise meters with two
// decimals. Rounding is half-up in both branches, not banker's.
func FormatDistance(meters float64) string {
	if meters < 1.0 {
		cm := math.Floor(meters*100 + 0.5)
		return fmt.Sprintf("%d cm", int(cm))
	}
	m := math.Floor(meters*100+0.5) / 100
	return fmt.Sprintf("%.2f m", m)
}
