package flow

// IsStage reports whether n opens a stage: a labelled block start (or a
// legacy labelled marker atom) that is not a parallel branch.
func IsStage(n *Node) bool {
	if n == nil || n.Label == "" || n.ThreadName != "" {
		return false
	}
	return n.Kind == KindBlockStart || n.Kind == KindAtom
}

// IsParallelBranch reports whether n opens one branch of a parallel.
func IsParallelBranch(n *Node) bool {
	return n != nil && n.ThreadName != ""
}

// IsSyntheticStage reports whether the engine generated the stage itself
// (checkout, post actions) rather than the pipeline author.
func IsSyntheticStage(n *Node) bool {
	if n == nil {
		return false
	}
	_, ok := n.Tags[TagSyntheticStage]
	return ok
}

// IsSkippedStage reports whether the engine skipped the stage statically.
func IsSkippedStage(n *Node) bool {
	if n == nil {
		return false
	}
	switch n.Tags[TagStageStatus] {
	case StageSkippedForConditional, StageSkippedForFailure, StageSkippedForUnstable, StageSkippedForRestart:
		return true
	}
	return false
}

// IsAgentStart reports whether n is the outer block of an agent allocation.
func IsAgentStart(n *Node) bool {
	return n != nil && n.Kind == KindBlockStart && n.Function == FunctionNode && !n.Body
}

// IsPausedForInput reports whether n is a step waiting on user input.
func IsPausedForInput(n *Node) bool {
	return n != nil && n.Kind == KindAtom && n.PausedForInput
}

// IsExecuted reports whether n actually ran.
func IsExecuted(n *Node) bool {
	return n != nil && !n.NotExecuted
}

// IsParallelStart reports whether n is the outer block of a parallel step.
func IsParallelStart(n *Node) bool {
	return n != nil && n.Kind == KindBlockStart && n.Function == FunctionParallel && !n.Body
}

// IsParallelEnd reports whether n closes a parallel step.
func (e *Execution) IsParallelEnd(n *Node) bool {
	return n != nil && n.Kind == KindBlockEnd && IsParallelStart(e.StartOf(n))
}

// CauseOfBlockage returns why the agent allocated inside stage is still
// queued, or "" when agent does not belong to stage.
func (e *Execution) CauseOfBlockage(stage, agent *Node) string {
	if stage == nil || agent == nil || agent.Queued == "" {
		return ""
	}
	parent := e.FirstParent(agent)
	if parent == nil {
		return ""
	}
	if parent.ID == stage.ID {
		return agent.Queued
	}
	// stage { node { ... } } puts a body block between the two
	if parent.Body {
		if gp := e.FirstParent(parent); gp != nil && gp.ID == stage.ID {
			return agent.Queued
		}
	}
	return ""
}
