package assigner

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

// 约束名称
const (
	ConstraintTimeConflict = "时间冲突"
	ConstraintSkillGap     = "技能缺失"
	ConstraintUtilization  = "工时上限"
)

// buildMatrix 为每个（班次，员工）组合计算候选评估
// 每个班次只写自己的输出槽位，互不依赖，可以并行打分
func (a *Assigner) buildMatrix(batch *batchContext, weights Weights) [][]*Candidate {
	matrix := make([][]*Candidate, len(batch.Shifts))

	scoreShift := func(i int) {
		shift := batch.Shifts[i]
		candidates := make([]*Candidate, 0, len(batch.Workers))
		for _, worker := range batch.Workers {
			candidates = append(candidates, a.evaluatePair(shift, worker, weights))
		}

		// 分数降序，分数相同时按员工 ID 升序，保证结果可复现
		sort.Slice(candidates, func(x, y int) bool {
			if candidates[x].Score != candidates[y].Score {
				return candidates[x].Score > candidates[y].Score
			}
			return candidates[x].Worker.ID < candidates[y].Worker.ID
		})

		shift.candidates = candidates
		matrix[i] = candidates
	}

	if a.cfg.Optimizer.ParallelScoring {
		wg := sync.WaitGroup{}
		for i := range batch.Shifts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				scoreShift(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := range batch.Shifts {
			scoreShift(i)
		}
	}

	return matrix
}

// evaluatePair 计算一个候选的七因子加权得分、约束评估和预估成本
func (a *Assigner) evaluatePair(shift *EnrichedShift, worker *EnrichedWorker, weights Weights) *Candidate {
	factors := FactorScores{
		Skill:        skillScore(shift, worker),
		Availability: availabilityScore(shift, worker),
		Proximity:    a.proximityScore(shift, worker),
		Performance:  worker.Performance,
		Workload:     workloadScore(worker.Utilization),
		Preference:   preferenceScore(shift, worker),
		Cost:         costScore(shift, worker),
	}

	score := factors.Skill*weights.Skill +
		factors.Availability*weights.Availability +
		factors.Proximity*weights.Proximity +
		factors.Performance*weights.Performance +
		factors.Workload*weights.Workload +
		factors.Preference*weights.Preference +
		factors.Cost*weights.Cost

	candidate := &Candidate{
		Shift:         shift,
		Worker:        worker,
		Score:         clamp(score, 0, 1),
		Factors:       factors,
		EstimatedCost: worker.HourlyRate * shift.Hours(),
	}

	candidate.Constraints = a.evaluateConstraints(shift, worker)
	candidate.Feasible = feasible(candidate.Constraints)

	return candidate
}

// evaluateConstraints 逐条评估硬约束和软约束
func (a *Assigner) evaluateConstraints(shift *EnrichedShift, worker *EnrichedWorker) []domain.ConstraintResult {
	results := make([]domain.ConstraintResult, 0, 3)

	// 时间冲突（硬）：员工已有其他未取消的已确认班次与本班次重叠
	conflict := findConflict(shift, worker)
	timeResult := domain.ConstraintResult{
		Name:     ConstraintTimeConflict,
		Severity: domain.ConstraintBlocking,
		Passed:   conflict == nil,
	}
	if conflict != nil {
		timeResult.Detail = fmt.Sprintf("与班次 %d（%s - %s）重叠", conflict.ID,
			conflict.StartTime.Format(time.DateTime), conflict.EndTime.Format(time.DateTime))
	}
	results = append(results, timeResult)

	// 技能缺失（软，站点要求零容忍时为硬）
	missing := missingSkills(shift, worker)
	skillSeverity := domain.ConstraintAdvisory
	if shift.Site != nil && shift.Site.SkillsMandatory {
		skillSeverity = domain.ConstraintBlocking
	}
	skillResult := domain.ConstraintResult{
		Name:     ConstraintSkillGap,
		Severity: skillSeverity,
		Passed:   len(missing) == 0,
	}
	if len(missing) > 0 {
		skillResult.Detail = fmt.Sprintf("缺少技能: %v", missing)
	}
	results = append(results, skillResult)

	// 工时上限（硬）：接下这个班次会超出每周工时的硬上限
	maxHours := a.cfg.Optimizer.MaxWeeklyHours
	over := worker.CommittedHours+shift.Hours() > maxHours
	utilResult := domain.ConstraintResult{
		Name:     ConstraintUtilization,
		Severity: domain.ConstraintBlocking,
		Passed:   !over,
	}
	if over {
		utilResult.Detail = fmt.Sprintf("已承担 %.1f 小时，再加 %.1f 小时将超出上限 %.1f 小时",
			worker.CommittedHours, shift.Hours(), maxHours)
	}
	results = append(results, utilResult)

	return results
}

func feasible(constraints []domain.ConstraintResult) bool {
	for _, c := range constraints {
		if c.Severity == domain.ConstraintBlocking && !c.Passed {
			return false
		}
	}
	return true
}

// findConflict 返回员工已确认班次中与给定班次重叠的第一个
func findConflict(shift *EnrichedShift, worker *EnrichedWorker) *domain.Shift {
	for _, committed := range worker.Committed {
		if committed.Status == domain.ShiftStatusCancelled {
			continue
		}
		if committed.ID == shift.ID {
			continue
		}
		if committed.Overlaps(shift.StartTime, shift.EndTime) {
			return committed
		}
	}
	return nil
}

func missingSkills(shift *EnrichedShift, worker *EnrichedWorker) []string {
	owned := make(map[string]bool, len(worker.Skills))
	for _, skill := range worker.Skills {
		owned[skill] = true
	}

	missing := make([]string, 0)
	for _, required := range shift.RequiredSkills {
		if !owned[required] {
			missing = append(missing, required)
		}
	}
	return missing
}

// skillScore 为员工具备的所需技能占比，不需要技能时为满分
func skillScore(shift *EnrichedShift, worker *EnrichedWorker) float64 {
	if len(shift.RequiredSkills) == 0 {
		return 1.0
	}

	owned := make(map[string]bool, len(worker.Skills))
	for _, skill := range worker.Skills {
		owned[skill] = true
	}

	matched := 0
	for _, required := range shift.RequiredSkills {
		if owned[required] {
			matched++
		}
	}
	return float64(matched) / float64(len(shift.RequiredSkills))
}

// availabilityScore 的规则：
//   - 与已确认班次存在时间冲突时直接为 0
//   - 否则从 1.0 开始，班次不在偏好的星期时乘 0.5，不在偏好的时段时乘 0.7（两个惩罚相乘）
//   - 没有填写偏好视为完全可用
func availabilityScore(shift *EnrichedShift, worker *EnrichedWorker) float64 {
	if findConflict(shift, worker) != nil {
		return 0
	}

	score := 1.0

	if len(worker.PreferredDays) > 0 {
		day := isoWeekday(shift.StartTime)
		preferred := false
		for _, d := range worker.PreferredDays {
			if d == day {
				preferred = true
				break
			}
		}
		if !preferred {
			score *= 0.5
		}
	}

	if worker.PreferredStartHour != nil && worker.PreferredEndHour != nil {
		hour := int32(shift.StartTime.Hour())
		if hour < *worker.PreferredStartHour || hour >= *worker.PreferredEndHour {
			score *= 0.7
		}
	}

	return score
}

// proximityScore 按大圆距离线性衰减，任一方没有位置信息时取中性值 0.5
func (a *Assigner) proximityScore(shift *EnrichedShift, worker *EnrichedWorker) float64 {
	if worker.HomeLatitude == nil || worker.HomeLongitude == nil ||
		shift.Site == nil || shift.Site.Latitude == nil || shift.Site.Longitude == nil {
		return 0.5
	}

	distance := haversineKm(*worker.HomeLatitude, *worker.HomeLongitude, *shift.Site.Latitude, *shift.Site.Longitude)
	return clamp(1-distance/a.cfg.Optimizer.MaxDistanceKm, 0, 1)
}

// workloadScore 按当前利用率分档，越空闲分数越高
func workloadScore(utilization float64) float64 {
	switch {
	case utilization < 0.7:
		return 1.0
	case utilization < 0.9:
		return 0.8
	case utilization < 1.0:
		return 0.5
	default:
		return 0.1
	}
}

// preferenceScore 由历史派班形成的站点亲和度、站点同类班次的历史排班质量
// 与员工填写的偏好共同决定
func preferenceScore(shift *EnrichedShift, worker *EnrichedWorker) float64 {
	// 历史上在该站点被确认次数越多亲和度越高，10 次封顶
	affinity := math.Min(float64(worker.SiteAffinity[shift.SiteID])/10, 1.0)

	dayMatch := 1.0
	if len(worker.PreferredDays) > 0 {
		dayMatch = 0.0
		day := isoWeekday(shift.StartTime)
		for _, d := range worker.PreferredDays {
			if d == day {
				dayMatch = 1.0
				break
			}
		}
	}

	hourMatch := 1.0
	if worker.PreferredStartHour != nil && worker.PreferredEndHour != nil {
		hour := int32(shift.StartTime.Hour())
		if hour < *worker.PreferredStartHour || hour >= *worker.PreferredEndHour {
			hourMatch = 0.0
		}
	}

	return clamp(0.4*affinity+0.2*historyScore(shift)+0.2*dayMatch+0.2*hourMatch, 0, 1)
}

// historyScore 把站点同类班次的历史排班质量折算成 [0,1] 的软性输入
// 没有历史记录时取中性值 0.5
func historyScore(shift *EnrichedShift) float64 {
	if shift.History == nil || shift.History.TotalShifts == 0 {
		return 0.5
	}
	return clamp(0.5*shift.History.AvgSuccessRate+0.5*shift.History.AvgScore, 0, 1)
}

// costScore 对时薪相对预算做反向归一化，时薪越低于预算分数越高
// 没有预算信息时取中性值 0.5
func costScore(shift *EnrichedShift, worker *EnrichedWorker) float64 {
	if shift.HourlyBudget <= 0 {
		return 0.5
	}
	ratio := worker.HourlyRate / shift.HourlyBudget
	return clamp(1-0.5*ratio, 0, 1)
}

// isoWeekday 将 time.Weekday 转换为 1（周一）到 7（周日）
func isoWeekday(t time.Time) int32 {
	day := int32(t.Weekday())
	if day == 0 {
		day = 7
	}
	return day
}

const earthRadiusKm = 6371

// haversineKm 计算两点之间的大圆距离（公里）
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
