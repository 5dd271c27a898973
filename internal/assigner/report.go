package assigner

import (
	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

// AssignmentReport 为一条成功的派班（带上下文，方便调用方直接使用）
type AssignmentReport struct {
	ShiftID       int64                     `json:"shiftID"`
	WorkerID      int64                     `json:"workerID"`
	WorkerName    string                    `json:"workerName"`
	SiteName      string                    `json:"siteName"`
	Score         float64                   `json:"score"`
	Factors       FactorScores              `json:"factors"`
	EstimatedCost float64                   `json:"estimatedCost"`
	Constraints   []domain.ConstraintResult `json:"constraints"`
}

// UnassignedReport 为一个派不出去的班次及其结构化原因
type UnassignedReport struct {
	ShiftID int64  `json:"shiftID"`
	Reason  string `json:"reason"`
}

// BatchReport 为一次批量派班的汇总，纯聚合，没有副作用
// 部分成功的批次也视为成功返回，调用方需要检查 Failures 和 Unassigned
type BatchReport struct {
	Objective      Objective           `json:"objective"`
	TotalRequested int                 `json:"totalRequested"`
	Assigned       int                 `json:"assigned"`
	Unassigned     []UnassignedReport  `json:"unassigned"`
	AverageScore   float64             `json:"averageScore"`
	Assignments    []AssignmentReport  `json:"assignments"`
	Failures       []AssignmentFailure `json:"failures"`
}

// buildReport 汇总优化与执行两个阶段的结果
func buildReport(requested int, p *plan, exec *executionResult, objective Objective) *BatchReport {
	report := &BatchReport{
		Objective:      objective,
		TotalRequested: requested,
		Assigned:       len(exec.Committed),
		Unassigned:     make([]UnassignedReport, 0, len(p.Unassigned)),
		Assignments:    make([]AssignmentReport, 0, len(exec.Committed)),
		Failures:       exec.Failures,
	}

	for _, unassigned := range p.Unassigned {
		report.Unassigned = append(report.Unassigned, UnassignedReport{
			ShiftID: unassigned.Shift.ID,
			Reason:  unassigned.Reason,
		})
	}

	sum := 0.0
	for _, candidate := range exec.Committed {
		sum += candidate.Score
		report.Assignments = append(report.Assignments, AssignmentReport{
			ShiftID:       candidate.Shift.ID,
			WorkerID:      candidate.Worker.ID,
			WorkerName:    candidate.Worker.FullName,
			SiteName:      candidate.Shift.Site.Name,
			Score:         candidate.Score,
			Factors:       candidate.Factors,
			EstimatedCost: candidate.EstimatedCost,
			Constraints:   candidate.Constraints,
		})
	}
	if len(exec.Committed) > 0 {
		report.AverageScore = sum / float64(len(exec.Committed))
	}

	return report
}
