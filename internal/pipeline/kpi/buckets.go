package kpi

import "fmt"

// AgingBuckets classifies an age in days into fixed ranges derived from
// ascending thresholds, e.g. thresholds 30,60,90 give buckets
// 0-30, 31-60, 61-90 and 90+.
type AgingBuckets struct {
	thresholds []int
	labels     []string
}

func NewAgingBuckets(thresholds []int) AgingBuckets {
	if len(thresholds) == 0 {
		thresholds = []int{30, 60, 90}
	}
	labels := make([]string, 0, len(thresholds)+1)
	low := 0
	for _, t := range thresholds {
		labels = append(labels, fmt.Sprintf("%d-%d", low, t))
		low = t + 1
	}
	labels = append(labels, fmt.Sprintf("%d+", thresholds[len(thresholds)-1]))

	return AgingBuckets{thresholds: thresholds, labels: labels}
}

func (b AgingBuckets) Classify(days int) string {
	if days < 0 {
		days = 0
	}
	for i, t := range b.thresholds {
		if days <= t {
			return b.labels[i]
		}
	}
	return b.labels[len(b.labels)-1]
}

// Labels returns the bucket names in ascending age order.
func (b AgingBuckets) Labels() []string {
	out := make([]string, len(b.labels))
	copy(out, b.labels)
	return out
}
