package model

// DistributionState is the per-rank outcome of the DistributionPlanner: how
// many processes cooperate per experiment, which experiment-index range this
// rank's group owns, and, when groups outnumber experiments, which shot
// slice within a shared experiment this rank contributes.
type DistributionState struct {
	NumProcesses            int
	MyRank                  int
	NumProcessPerExperiment int
	DistributedExperiments  int
	GroupID                 int
	RankInGroup             int
	ExperimentsBegin        int
	ExperimentsEnd          int
	DistributedShots        int
	DistributedShotsRank    int
}

// ParallelismPlan is the three-level thread budget computed by the
// ParallelismPlanner for one invocation (batch-level experiment planning, or
// per-circuit shot planning).
type ParallelismPlan struct {
	ParallelExperiments  int
	ParallelShots        int
	ParallelStateUpdate  int
	NestedParallelism    bool
}
