package approval

import "time"

// IsOutsideThresholdPeriod reports whether the given time is older than the
// given period, expressed as a time.ParseDuration string (e.g. "24h").
func IsOutsideThresholdPeriod(t time.Time, period string) (bool, error) {
	d, err := time.ParseDuration(period)
	if err != nil {
		return false, err
	}

	return time.Since(t) > d, nil
}
