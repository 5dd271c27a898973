package domain

import "time"

const AssignmentMethodIntelligent = "automatic-intelligent"

// ConstraintSeverity 表示约束的严重程度
type ConstraintSeverity string

const (
	ConstraintBlocking ConstraintSeverity = "blocking" // 硬约束，不满足则候选不可行
	ConstraintAdvisory ConstraintSeverity = "advisory" // 软约束，不满足仅降低优先级
)

// ConstraintResult 为单条约束的评估结果
type ConstraintResult struct {
	Name     string             `json:"name"`
	Severity ConstraintSeverity `json:"severity"`
	Passed   bool               `json:"passed"`
	Detail   string             `json:"detail,omitempty"`
}

// AssignmentAudit 为一次派班的不可变审计记录
type AssignmentAudit struct {
	ID            int64              `json:"id"`
	ShiftID       int64              `json:"shiftID"`
	WorkerID      int64              `json:"workerID"`
	Score         float64            `json:"score"`
	EstimatedCost float64            `json:"estimatedCost"`
	Method        string             `json:"method"`
	Justification string             `json:"justification"`
	Constraints   []ConstraintResult `json:"constraints"`
	CreatedAt     time.Time          `json:"createdAt"`
}
