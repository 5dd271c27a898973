package assigner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vigilo-dev/vigilo/backend/internal/domain"
	"github.com/vigilo-dev/vigilo/backend/internal/repository"
)

// AssignmentFailure 记录单个派班的提交失败，批次中的其他派班不受影响
type AssignmentFailure struct {
	ShiftID  int64  `json:"shiftID"`
	WorkerID int64  `json:"workerID"`
	Reason   string `json:"reason"`
}

// executionResult 为执行阶段的产出
type executionResult struct {
	Committed []*Candidate
	Failures  []AssignmentFailure
}

// execute 逐个独立提交派班：
//  1. 以乐观并发的方式更新班次（失败只影响这一个派班）
//  2. 写入不可变的审计记录
//  3. 发布员工通知（失败只记日志）
//  4. 发布实时事件（尽力而为）
//
// 执行一旦开始，取消只会放弃剩余的派班，已提交的不回滚
func (a *Assigner) execute(ctx context.Context, p *plan, opts Options) *executionResult {
	result := &executionResult{
		Committed: make([]*Candidate, 0, len(p.Tentative)),
		Failures:  make([]AssignmentFailure, 0),
	}

	for _, candidate := range p.Tentative {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, AssignmentFailure{
				ShiftID:  candidate.Shift.ID,
				WorkerID: candidate.Worker.ID,
				Reason:   "批次被取消，未执行",
			})
			continue
		}

		if err := a.store.CommitAssignment(candidate.Shift.Shift, candidate.Worker.ID, candidate.Score, domain.AssignmentMethodIntelligent); err != nil {
			reason := err.Error()
			if errors.Is(err, repository.ErrAssignmentConflict) {
				reason = "班次或员工已被并发修改"
			}
			slog.Warn("提交派班失败", "shiftID", candidate.Shift.ID, "workerID", candidate.Worker.ID, "error", err)
			result.Failures = append(result.Failures, AssignmentFailure{
				ShiftID:  candidate.Shift.ID,
				WorkerID: candidate.Worker.ID,
				Reason:   reason,
			})
			continue
		}

		audit := &domain.AssignmentAudit{
			ShiftID:       candidate.Shift.ID,
			WorkerID:      candidate.Worker.ID,
			Score:         candidate.Score,
			EstimatedCost: candidate.EstimatedCost,
			Method:        domain.AssignmentMethodIntelligent,
			Justification: justification(candidate),
			Constraints:   candidate.Constraints,
		}
		if err := a.store.InsertAssignmentAudit(audit); err != nil {
			// 派班已经生效，审计失败不回滚
			slog.Error("写入派班审计失败", "shiftID", candidate.Shift.ID, "error", err)
		}

		if opts.Notify {
			a.notifyWorker(ctx, candidate)
		}
		a.publishRealtime(ctx, candidate)

		result.Committed = append(result.Committed, candidate)
	}

	return result
}

func (a *Assigner) notifyWorker(ctx context.Context, candidate *Candidate) {
	notifyCtx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Optimizer.NotifyTimeout)*time.Second)
	defer cancel()

	msg := &domain.NotificationMessage{
		Type: "shift_assignment",
		To:   candidate.Worker.Email,
		Data: domain.ShiftAssignmentMailData{
			FullName:  candidate.Worker.FullName,
			SiteName:  candidate.Shift.Site.Name,
			StartTime: candidate.Shift.StartTime.Format(time.DateTime),
			EndTime:   candidate.Shift.EndTime.Format(time.DateTime),
			Score:     candidate.Score,
		},
	}

	if err := a.notifier.Notify(notifyCtx, msg); err != nil {
		slog.Warn("发送派班通知失败", "workerID", candidate.Worker.ID, "error", err)
	}
}

func (a *Assigner) publishRealtime(ctx context.Context, candidate *Candidate) {
	publishCtx, cancel := context.WithTimeout(ctx, time.Duration(a.cfg.Optimizer.RealtimeTimeout)*time.Second)
	defer cancel()

	payload := map[string]any{
		"shiftID":   candidate.Shift.ID,
		"siteName":  candidate.Shift.Site.Name,
		"startTime": candidate.Shift.StartTime,
		"endTime":   candidate.Shift.EndTime,
		"score":     candidate.Score,
	}

	if err := a.realtime.PublishToWorker(publishCtx, candidate.Worker.ID, "shift_assigned", payload); err != nil {
		slog.Warn("发布实时事件失败", "workerID", candidate.Worker.ID, "error", err)
	}
}

// justification 按分数档位生成人类可读的派班理由
func justification(candidate *Candidate) string {
	var grade string
	switch {
	case candidate.Score >= 0.9:
		grade = "极佳匹配"
	case candidate.Score >= 0.75:
		grade = "良好匹配"
	case candidate.Score >= 0.6:
		grade = "稳妥匹配"
	default:
		grade = "保底匹配"
	}

	return fmt.Sprintf("%s：综合得分 %.2f（技能 %.2f，可用性 %.2f，距离 %.2f，表现 %.2f）",
		grade, candidate.Score, candidate.Factors.Skill, candidate.Factors.Availability,
		candidate.Factors.Proximity, candidate.Factors.Performance)
}
