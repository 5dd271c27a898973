package assigner

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

// batchContext 为一次优化所需的全部输入，加载完成后在优化期间只读
type batchContext struct {
	Shifts  []*EnrichedShift
	Workers []*EnrichedWorker
	Skipped []UnassignedShift // 加载阶段即排除的班次（状态不可派等）
	Window  struct {
		Start time.Time
		End   time.Time
	}
}

// loadBatch 加载并补全班次与员工
// 原始班次加载完、确定时间窗口之后，班次的上下文补全和员工的加载互不依赖，可以并发执行
func (a *Assigner) loadBatch(shiftIDs []int64) (*batchContext, error) {
	rawShifts, err := a.store.GetShiftsByIDs(shiftIDs)
	if err != nil {
		return nil, fmt.Errorf("加载班次失败: %w", err)
	}

	batch := &batchContext{
		Shifts:  make([]*EnrichedShift, 0, len(rawShifts)),
		Skipped: make([]UnassignedShift, 0),
	}

	openShifts := make([]*domain.Shift, 0, len(rawShifts))
	for _, shift := range rawShifts {
		if shift.Status != domain.ShiftStatusOpen {
			batch.Skipped = append(batch.Skipped, UnassignedShift{
				Shift:  &EnrichedShift{Shift: shift},
				Reason: "班次不是待派状态",
			})
			continue
		}
		openShifts = append(openShifts, shift)
	}

	if len(openShifts) == 0 {
		return batch, nil
	}

	// 计算时间窗口（最早开始到最晚结束）
	batch.Window.Start = openShifts[0].StartTime
	batch.Window.End = openShifts[0].EndTime
	for _, shift := range openShifts[1:] {
		if shift.StartTime.Before(batch.Window.Start) {
			batch.Window.Start = shift.StartTime
		}
		if shift.EndTime.After(batch.Window.End) {
			batch.Window.End = shift.EndTime
		}
	}

	var (
		wg         sync.WaitGroup
		workers    []*EnrichedWorker
		workersErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		workers, workersErr = a.loadWorkforce(batch.Window.Start, batch.Window.End)
	}()

	// 班次上下文补全在当前 goroutine 完成
	for _, shift := range openShifts {
		batch.Shifts = append(batch.Shifts, a.enrichShift(shift))
	}

	wg.Wait()
	if workersErr != nil {
		return nil, fmt.Errorf("加载员工失败: %w", workersErr)
	}
	batch.Workers = workers

	return batch, nil
}

// 紧急度的时间分档（距离开始时间）
const (
	urgencyImminent = 4 * time.Hour
	urgencySoon     = 24 * time.Hour
	urgencyNear     = 72 * time.Hour
)

// enrichShift 计算班次的优先级、紧急度、复杂度和历史排班统计
func (a *Assigner) enrichShift(shift *domain.Shift) *EnrichedShift {
	enriched := &EnrichedShift{Shift: shift}

	// 优先级：客户服务等级为主，显式加急标记额外加分，范围 0-100
	priority := float64(shift.Site.ServiceLevel) * 15
	if shift.IsUrgent {
		priority += 25
	}
	enriched.Priority = clamp(priority, 0, 100)

	// 紧急度：距离开始时间越近越紧急；待派班次本身就意味着无人值守
	until := time.Until(shift.StartTime)
	switch {
	case until <= urgencyImminent:
		enriched.Urgency = 1.0
	case until <= urgencySoon:
		enriched.Urgency = 0.8
	case until <= urgencyNear:
		enriched.Urgency = 0.5
	default:
		enriched.Urgency = 0.2
	}

	// 复杂度：所需技能越多、站点风险越高越复杂
	enriched.Complexity = clamp(0.15*float64(len(shift.RequiredSkills))+0.1*float64(shift.Site.RiskLevel), 0, 1)

	// 历史统计失败不中断整个批次，降级为中性值
	history, err := a.store.GetSiteHistoryStats(shift.SiteID, shift.ShiftType)
	if err != nil {
		slog.Warn("加载站点历史统计失败，使用中性默认值", "siteID", shift.SiteID, "shiftType", shift.ShiftType, "error", err)
		history = &domain.SiteHistoryStats{
			SiteID:         shift.SiteID,
			ShiftType:      shift.ShiftType,
			AvgSuccessRate: 0.5,
			AvgScore:       0.5,
		}
	}
	enriched.History = history

	return enriched
}

// loadWorkforce 加载窗口内的在职员工并补全负载、表现和站点亲和度
func (a *Assigner) loadWorkforce(start, end time.Time) ([]*EnrichedWorker, error) {
	rawWorkers, err := a.store.GetActiveWorkers()
	if err != nil {
		return nil, err
	}

	committed, err := a.store.GetConfirmedShiftsInWindow(start, end)
	if err != nil {
		return nil, err
	}
	committedByWorker := make(map[int64][]*domain.Shift)
	for _, shift := range committed {
		if shift.AssignedWorkerID == nil {
			continue
		}
		workerID := *shift.AssignedWorkerID
		committedByWorker[workerID] = append(committedByWorker[workerID], shift)
	}

	stats, err := a.store.GetAllWorkerStats()
	if err != nil {
		return nil, err
	}
	statsByWorker := make(map[int64]*domain.WorkerStats)
	for _, st := range stats {
		statsByWorker[st.WorkerID] = st
	}

	affinities, err := a.store.GetWorkerSiteAffinities()
	if err != nil {
		return nil, err
	}
	affinityByWorker := make(map[int64]map[int64]int64)
	for _, af := range affinities {
		if _, exists := affinityByWorker[af.WorkerID]; !exists {
			affinityByWorker[af.WorkerID] = make(map[int64]int64)
		}
		affinityByWorker[af.WorkerID][af.SiteID] = af.Assignments
	}

	workers := make([]*EnrichedWorker, 0, len(rawWorkers))
	for _, worker := range rawWorkers {
		enriched := &EnrichedWorker{
			Worker:       worker,
			Committed:    committedByWorker[worker.ID],
			SiteAffinity: affinityByWorker[worker.ID],
		}
		if enriched.SiteAffinity == nil {
			enriched.SiteAffinity = make(map[int64]int64)
		}

		for _, shift := range enriched.Committed {
			enriched.CommittedHours += shift.Hours()
		}
		if a.cfg.Optimizer.MaxWeeklyHours > 0 {
			enriched.Utilization = enriched.CommittedHours / a.cfg.Optimizer.MaxWeeklyHours
		}

		enriched.Performance = performanceComposite(statsByWorker[worker.ID])

		workers = append(workers, enriched)
	}

	return workers, nil
}

// performanceComposite 计算四项历史指标的均值，缺数据的指标取中性值 0.5
func performanceComposite(stats *domain.WorkerStats) float64 {
	factor := func(v *float64) float64 {
		if v == nil {
			return 0.5
		}
		return clamp(*v, 0, 1)
	}

	if stats == nil {
		return 0.5
	}

	sum := factor(stats.AttendanceRate) +
		factor(stats.PunctualityRate) +
		factor(stats.QualityScore) +
		factor(stats.ClientSatisfaction)
	return sum / 4
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
