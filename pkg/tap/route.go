package tap

// distanceTable[s] is the number of transitions from s to every other state
// along the shortest path, computed once via BFS. enterStateGreedy uses it
// to pick, at each step, the TMS value that minimises the remaining
// distance to the target — the literal per-step algorithm §4.1 describes,
// as opposed to computePath's whole-path BFS.
var distanceTable = buildDistanceTable()

func buildDistanceTable() map[State]map[State]int {
	all := allStates()
	table := make(map[State]map[State]int, len(all))
	for _, target := range all {
		dist := map[State]int{target: 0}
		queue := []State{target}
		// BFS over the reversed graph: who can reach `target` in one hop.
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, s := range all {
				if _, done := dist[s]; done {
					continue
				}
				if NextState(s, false) == cur || NextState(s, true) == cur {
					dist[s] = dist[cur] + 1
					queue = append(queue, s)
				}
			}
		}
		table[target] = dist
	}
	return table
}

func allStates() []State {
	return []State{
		StateTestLogicReset, StateRunTestIdle, StateSelectDRScan, StateCaptureDR,
		StateShiftDR, StateExit1DR, StatePauseDR, StateExit2DR, StateUpdateDR,
		StateSelectIRScan, StateCaptureIR, StateShiftIR, StateExit1IR,
		StatePauseIR, StateExit2IR, StateUpdateIR,
	}
}

// greedyPath builds a TMS sequence from `from` to `to` by, at each state,
// picking the successor (TMS=0 or TMS=1) with the smaller remaining
// distance to `to`. Ties (both successors equidistant, which only happens
// at the fork between the DR and IR branches) are broken by the states'
// declared ordering: DR-branch states sort below IR-branch states, so a
// DR-branch target takes TMS=0 and an IR-branch target takes TMS=1.
func greedyPath(from, to State) Sequence {
	if from == to {
		return Sequence{States: []State{from}}
	}
	dist := distanceTable[to]
	seq := Sequence{States: []State{from}}
	cur := from
	for cur != to {
		zero, one := NextState(cur, false), NextState(cur, true)
		dz, hasZero := dist[zero]
		do, hasOne := dist[one]
		var bit bool
		switch {
		case !hasOne || (hasZero && dz < do):
			bit = false
		case !hasZero || (hasOne && do < dz):
			bit = true
		default:
			// Equidistant fork: lower-numbered branch (DR) wins ties.
			bit = to >= StateSelectIRScan
		}
		next := NextState(cur, bit)
		seq.TMS = append(seq.TMS, bit)
		seq.States = append(seq.States, next)
		cur = next
	}
	return seq
}
