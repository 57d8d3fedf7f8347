package scheduler

const (
	// maxWorkers caps both configured and automatic base sizing.
	maxWorkers = 12
	// minAutoWorkers keeps small runs from serializing completely.
	minAutoWorkers = 2
	// autoDivisor is the files-per-worker ratio for automatic sizing.
	autoDivisor = 30
	// growthHeadroom is how far above the base an automatic pool may grow.
	growthHeadroom = 4
)

// Workers resolves the base pool size. A positive configured count wins
// (capped); otherwise the size derives from the file total. The bool
// reports whether the pool may grow.
func Workers(configured, total int) (int, bool) {
	if configured > 0 {
		if configured > maxWorkers {
			return maxWorkers, false
		}
		return configured, false
	}
	base := (total + autoDivisor - 1) / autoDivisor
	if base < minAutoWorkers {
		base = minAutoWorkers
	}
	if base > maxWorkers {
		base = maxWorkers
	}
	return base, true
}
