package strategy

// Heuristic is the initial, non-adaptive batch/concurrency/timeout guess
// derived purely from how many chunks a project produced, per spec.md §6.1.
type Heuristic struct {
	BatchSize   int
	Concurrency int
	TimeoutMs   int
	ScaleName   string
}

// HeuristicFor buckets chunkCount into one of four project-scale presets.
func HeuristicFor(chunkCount int) Heuristic {
	switch {
	case chunkCount < 100:
		return Heuristic{BatchSize: 10, Concurrency: 1, TimeoutMs: 30000, ScaleName: "small"}
	case chunkCount < 500:
		return Heuristic{BatchSize: 30, Concurrency: 2, TimeoutMs: 45000, ScaleName: "medium"}
	case chunkCount < 2000:
		return Heuristic{BatchSize: 50, Concurrency: 3, TimeoutMs: 60000, ScaleName: "large"}
	default:
		return Heuristic{BatchSize: 70, Concurrency: 4, TimeoutMs: 90000, ScaleName: "xlarge"}
	}
}
