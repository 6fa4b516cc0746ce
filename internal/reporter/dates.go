package reporter

import "time"

const datePartitionLayout = "2006-01-02"

// RunOptions are per-invocation overrides for the resolved date partition.
// They mirror the trigger payload accepted over HTTP.
type RunOptions struct {
	DatePartition string `json:"date_partition"`
	Mode          string `json:"mode"` // "weekly" forces the Monday-anchored date
	DaysAgo       *int   `json:"days_ago"`
}

// mondayTwoWeeksAgo anchors on the Monday of the current week, then steps
// back two full weeks.
func mondayTwoWeeksAgo(today time.Time) string {
	sinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -sinceMonday)
	return monday.AddDate(0, 0, -14).Format(datePartitionLayout)
}

func exactDaysAgo(today time.Time, days int) string {
	return today.AddDate(0, 0, -days).Format(datePartitionLayout)
}

// resolveDatePartition picks the date partition for a run. A test-forced
// date wins over everything, then the explicit overrides, then the default:
// Monday runs use the Monday two weeks back, any other day uses exactly 14
// days ago.
func resolveDatePartition(opts RunOptions, now time.Time, testMode bool, testDate string) string {
	today := now.UTC()

	if testMode && testDate != "" {
		return testDate
	}
	if opts.DatePartition != "" {
		return opts.DatePartition
	}
	if opts.Mode == "weekly" {
		return mondayTwoWeeksAgo(today)
	}
	if opts.DaysAgo != nil {
		return exactDaysAgo(today, *opts.DaysAgo)
	}

	if today.Weekday() == time.Monday {
		return mondayTwoWeeksAgo(today)
	}
	return exactDaysAgo(today, 14)
}
