package assigner

import (
	"sort"
)

// 派不出去的原因
const (
	ReasonNoCandidate      = "没有可用的候选员工"
	ReasonNoFeasible       = "没有可行的候选（均存在硬约束冲突）"
	ReasonAllClaimed       = "可行候选均已被本批次的其他班次占用"
	ReasonRevalidateFailed = "复核约束时发现候选已不可行"
)

// plan 为优化器的产出：批内试定的派班和派不出去的班次
// 状态机：Loaded -> Greedy-Assigned -> Goal-Refined -> Constraint-Validated -> Finalized
type plan struct {
	Tentative  []*Candidate // 按班次优先级顺序
	Unassigned []UnassignedShift

	// claimed 为批内员工占用表：一个员工在一个批次内最多被派一个班次
	// 注意这个表只约束本批次，跨批次的互斥由持久层的提交检查保证
	claimed map[int64]*Candidate // workerID -> 当前占用该员工的候选
}

// optimize 执行贪心初派、目标细化和最终的约束复核
func (a *Assigner) optimize(batch *batchContext, matrix [][]*Candidate, opts Options) *plan {
	ordered := orderShifts(batch, matrix)

	p := &plan{
		Tentative:  make([]*Candidate, 0, len(ordered)),
		Unassigned: make([]UnassignedShift, 0),
		claimed:    make(map[int64]*Candidate),
	}

	p.greedyAssign(ordered)

	switch opts.Objective {
	case ObjectiveCost:
		p.refineCost(a.cfg.Optimizer.CostTolerance)
	case ObjectiveQuality:
		p.refineQuality(a.cfg.Optimizer.CostTolerance)
	case ObjectiveCoverage:
		p.refineCoverage()
	default:
		// balanced：贪心已经按加权综合分选择，无需进一步调整
	}

	// 细化可能基于过程中变化的数据，最终提交前无条件复核一遍约束
	p.revalidate(a)

	return p
}

// shiftCandidates 把一个班次和它的候选列表绑在一起，方便整体排序
type shiftCandidates struct {
	Shift      *EnrichedShift
	Candidates []*Candidate
}

// orderShifts 按（优先级降序，紧急度降序，ID 升序）排列班次
func orderShifts(batch *batchContext, matrix [][]*Candidate) []*shiftCandidates {
	ordered := make([]*shiftCandidates, len(batch.Shifts))
	for i, shift := range batch.Shifts {
		ordered[i] = &shiftCandidates{Shift: shift, Candidates: matrix[i]}
	}

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Shift.Priority != ordered[j].Shift.Priority {
			return ordered[i].Shift.Priority > ordered[j].Shift.Priority
		}
		if ordered[i].Shift.Urgency != ordered[j].Shift.Urgency {
			return ordered[i].Shift.Urgency > ordered[j].Shift.Urgency
		}
		return ordered[i].Shift.ID < ordered[j].Shift.ID
	})

	return ordered
}

// greedyAssign 按班次顺序为每个班次选择分数最高、员工尚未被占用的可行候选
func (p *plan) greedyAssign(ordered []*shiftCandidates) {
	for _, sc := range ordered {
		if len(sc.Candidates) == 0 {
			p.Unassigned = append(p.Unassigned, UnassignedShift{Shift: sc.Shift, Reason: ReasonNoCandidate})
			continue
		}

		var chosen *Candidate
		hasFeasible := false
		for _, candidate := range sc.Candidates {
			if !candidate.Feasible {
				continue
			}
			hasFeasible = true
			if _, taken := p.claimed[candidate.Worker.ID]; taken {
				continue
			}
			chosen = candidate
			break
		}

		switch {
		case chosen != nil:
			p.claim(chosen)
		case hasFeasible:
			p.Unassigned = append(p.Unassigned, UnassignedShift{Shift: sc.Shift, Reason: ReasonAllClaimed})
		default:
			p.Unassigned = append(p.Unassigned, UnassignedShift{Shift: sc.Shift, Reason: ReasonNoFeasible})
		}
	}
}

func (p *plan) claim(candidate *Candidate) {
	p.claimed[candidate.Worker.ID] = candidate
	p.Tentative = append(p.Tentative, candidate)
}

// replace 把某个班次的试定候选换成另一个（员工占用表同步更新）
func (p *plan) replace(old, next *Candidate) {
	delete(p.claimed, old.Worker.ID)
	p.claimed[next.Worker.ID] = next
	for i, candidate := range p.Tentative {
		if candidate == old {
			p.Tentative[i] = next
			return
		}
	}
}

// alternatives 返回某个试定派班在其班次候选中的可替换项：
// 可行、且员工未被占用（或就是当前员工）
func (p *plan) alternatives(current *Candidate) []*Candidate {
	result := make([]*Candidate, 0)
	for _, candidate := range current.Shift.candidates {
		if !candidate.Feasible {
			continue
		}
		holder, taken := p.claimed[candidate.Worker.ID]
		if taken && holder != current {
			continue
		}
		result = append(result, candidate)
	}
	return result
}

// refineCost 在可接受的分数损失内把已派班次换成更低成本的员工
func (p *plan) refineCost(tolerance float64) {
	for _, current := range append([]*Candidate(nil), p.Tentative...) {
		best := current
		for _, alt := range p.alternatives(current) {
			if alt.Score < current.Score-tolerance {
				continue
			}
			if alt.EstimatedCost < best.EstimatedCost {
				best = alt
				continue
			}
			// 成本相同取分数更高者，仍相同取员工 ID 更小者，保证可复现
			if alt.EstimatedCost == best.EstimatedCost && alt != best {
				if alt.Score > best.Score || (alt.Score == best.Score && alt.Worker.ID < best.Worker.ID) {
					best = alt
				}
			}
		}
		if best != current {
			p.replace(current, best)
		}
	}
}

// refineQuality 在可接受的分数损失内优先历史表现更好的员工
func (p *plan) refineQuality(tolerance float64) {
	for _, current := range append([]*Candidate(nil), p.Tentative...) {
		best := current
		for _, alt := range p.alternatives(current) {
			if alt.Score < current.Score-tolerance {
				continue
			}
			if alt.Worker.Performance > best.Worker.Performance {
				best = alt
				continue
			}
			if alt.Worker.Performance == best.Worker.Performance && alt != best {
				if alt.Score > best.Score || (alt.Score == best.Score && alt.Worker.ID < best.Worker.ID) {
					best = alt
				}
			}
		}
		if best != current {
			p.replace(current, best)
		}
	}
}

// refineCoverage 尽量减少没人值守的班次：
// 对每个派不出去的班次，尝试从占用其可行候选员工的班次那里“借”员工，
// 前提是被借的班次还有其他未被占用的可行候选可以顶上
func (p *plan) refineCoverage() {
	remaining := make([]UnassignedShift, 0, len(p.Unassigned))

	for _, unassigned := range p.Unassigned {
		if unassigned.Shift.candidates == nil {
			remaining = append(remaining, unassigned)
			continue
		}

		covered := false
		for _, candidate := range unassigned.Shift.candidates {
			if !candidate.Feasible {
				continue
			}

			holder, taken := p.claimed[candidate.Worker.ID]
			if !taken {
				// 细化过程中员工可能被释放，直接占用
				p.claim(candidate)
				covered = true
				break
			}

			// 为占用者寻找可顶替的候选
			var substitute *Candidate
			for _, alt := range holder.Shift.candidates {
				if !alt.Feasible || alt.Worker.ID == candidate.Worker.ID {
					continue
				}
				if _, altTaken := p.claimed[alt.Worker.ID]; altTaken {
					continue
				}
				substitute = alt
				break
			}
			if substitute == nil {
				continue
			}

			p.replace(holder, substitute)
			p.claim(candidate)
			covered = true
			break
		}

		if !covered {
			remaining = append(remaining, unassigned)
		}
	}

	p.Unassigned = remaining
}

// revalidate 重新评估每个试定派班的约束，不再可行的移入派不出去列表
func (p *plan) revalidate(a *Assigner) {
	valid := make([]*Candidate, 0, len(p.Tentative))

	for _, candidate := range p.Tentative {
		constraints := a.evaluateConstraints(candidate.Shift, candidate.Worker)
		if !feasible(constraints) {
			delete(p.claimed, candidate.Worker.ID)
			p.Unassigned = append(p.Unassigned, UnassignedShift{Shift: candidate.Shift, Reason: ReasonRevalidateFailed})
			continue
		}
		candidate.Constraints = constraints
		valid = append(valid, candidate)
	}

	p.Tentative = valid
}
