package assigner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

// Objective 为本批次优化的目标
type Objective string

const (
	ObjectiveBalanced Objective = "balanced" // 默认：按综合得分
	ObjectiveCost     Objective = "cost"     // 在允许的分数损失内优先低成本
	ObjectiveQuality  Objective = "quality"  // 优先历史表现最好的员工
	ObjectiveCoverage Objective = "coverage" // 优先让更多班次有人值守
)

func (o Objective) Valid() bool {
	switch o {
	case ObjectiveBalanced, ObjectiveCost, ObjectiveQuality, ObjectiveCoverage:
		return true
	}
	return false
}

// Weights 为评分的权重配置，各项之和必须为 1
// 显式注入而不是写死在算法里，方便按客户调整策略
type Weights struct {
	Skill        float64 `json:"skill"`
	Availability float64 `json:"availability"`
	Proximity    float64 `json:"proximity"`
	Performance  float64 `json:"performance"`
	Workload     float64 `json:"workload"`
	Preference   float64 `json:"preference"`
	Cost         float64 `json:"cost"`
}

func DefaultWeights() Weights {
	return Weights{
		Skill:        0.25,
		Availability: 0.20,
		Proximity:    0.15,
		Performance:  0.15,
		Workload:     0.10,
		Preference:   0.10,
		Cost:         0.05,
	}
}

func (w Weights) Validate() error {
	factors := []float64{w.Skill, w.Availability, w.Proximity, w.Performance, w.Workload, w.Preference, w.Cost}
	sum := 0.0
	for _, f := range factors {
		if f < 0 {
			return fmt.Errorf("权重不能为负数")
		}
		sum += f
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("权重之和必须为 1，当前为 %v", sum)
	}
	return nil
}

// Options 为一次批量派班的调用选项
type Options struct {
	Objective    Objective
	Weights      Weights
	Notify       bool // 是否向被派班的员工发送通知
	AllowPartial bool // 为 false 时，只要有班次派不出去，整个批次就在写库前放弃
}

// EnrichedShift 为补全了派生属性的班次，优化期间只读
type EnrichedShift struct {
	*domain.Shift

	Priority   float64 // 0-100，越大越重要
	Urgency    float64 // [0,1]，开始时间越近越紧急
	Complexity float64 // [0,1]，由技能数量和站点风险派生
	History    *domain.SiteHistoryStats

	// 本班次的候选列表（分数降序），由矩阵构建阶段填充
	candidates []*Candidate
}

// EnrichedWorker 为补全了负载与表现的员工，优化期间只读
type EnrichedWorker struct {
	*domain.Worker

	CommittedHours float64 // 窗口内已确认班次的工时之和
	Utilization    float64 // CommittedHours / 每周工时上限
	Performance    float64 // 四项历史指标的均值，缺数据时取 0.5
	Committed      []*domain.Shift
	SiteAffinity   map[int64]int64 // siteID -> 历史被确认次数
}

// FactorScores 记录七个子分，便于审计和测试
type FactorScores struct {
	Skill        float64 `json:"skill"`
	Availability float64 `json:"availability"`
	Proximity    float64 `json:"proximity"`
	Performance  float64 `json:"performance"`
	Workload     float64 `json:"workload"`
	Preference   float64 `json:"preference"`
	Cost         float64 `json:"cost"`
}

// Candidate 为某个（班次，员工）组合的评估结果，仅在一次优化内存在
type Candidate struct {
	Shift         *EnrichedShift
	Worker        *EnrichedWorker
	Score         float64
	Factors       FactorScores
	Constraints   []domain.ConstraintResult
	Feasible      bool // 没有任何硬约束不满足时为 true
	EstimatedCost float64
}

// UnassignedShift 记录一个派不出去的班次及其原因，这不是错误而是正常结果
type UnassignedShift struct {
	Shift  *EnrichedShift
	Reason string
}

// Store 为优化器对持久层的窄依赖
type Store interface {
	GetShiftsByIDs(ids []int64) ([]*domain.Shift, error)
	GetSiteHistoryStats(siteID int64, shiftType string) (*domain.SiteHistoryStats, error)
	GetActiveWorkers() ([]*domain.Worker, error)
	GetConfirmedShiftsInWindow(start, end time.Time) ([]*domain.Shift, error)
	GetAllWorkerStats() ([]*domain.WorkerStats, error)
	GetWorkerSiteAffinities() ([]*domain.WorkerSiteAffinity, error)
	CommitAssignment(shift *domain.Shift, workerID int64, score float64, method string) error
	InsertAssignmentAudit(audit *domain.AssignmentAudit) error
}

// Notifier 为通知协作方（消息队列），发布失败只记录日志，不影响派班结果
type Notifier interface {
	Notify(ctx context.Context, msg *domain.NotificationMessage) error
}

// RealtimePublisher 为实时推送协作方（redis 发布），尽力而为
type RealtimePublisher interface {
	PublishToWorker(ctx context.Context, workerID int64, event string, payload any) error
}
