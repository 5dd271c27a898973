// Package assigner 实现智能派班：
// 为一批待派班次和可用员工计算多因子匹配分，过滤硬约束冲突，
// 按目标做贪心优化，最后逐个独立提交派班结果。
package assigner

import (
	"context"
	"fmt"

	"github.com/vigilo-dev/vigilo/backend/internal/config"
)

type Assigner struct {
	cfg      *config.Config
	store    Store
	notifier Notifier
	realtime RealtimePublisher
}

func New(cfg *config.Config, store Store, notifier Notifier, realtime RealtimePublisher) *Assigner {
	return &Assigner{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		realtime: realtime,
	}
}

// Run 对给定班次执行一次完整的批量派班
// 只有非法输入和加载整体失败会返回 error；
// 单个班次派不出去或单个派班提交失败都记录在报告里，批次继续
func (a *Assigner) Run(ctx context.Context, shiftIDs []int64, opts Options) (*BatchReport, error) {
	if len(shiftIDs) == 0 {
		return nil, fmt.Errorf("班次 ID 列表不能为空")
	}

	if opts.Objective == "" {
		opts.Objective = ObjectiveBalanced
	}
	if !opts.Objective.Valid() {
		return nil, fmt.Errorf("无效的优化目标: %s", opts.Objective)
	}
	if opts.Weights == (Weights{}) {
		opts.Weights = DefaultWeights()
	}
	if err := opts.Weights.Validate(); err != nil {
		return nil, err
	}

	batch, err := a.loadBatch(shiftIDs)
	if err != nil {
		return nil, err
	}

	matrix := a.buildMatrix(batch, opts.Weights)

	p := a.optimize(batch, matrix, opts)
	// 加载阶段排除的班次同样计入派不出去的列表
	p.Unassigned = append(p.Unassigned, batch.Skipped...)

	if !opts.AllowPartial && len(p.Unassigned) > 0 {
		// 执行尚未开始，此时放弃不会留下任何已写入的副作用
		return nil, fmt.Errorf("存在 %d 个无法派出的班次，批次已放弃", len(p.Unassigned))
	}

	exec := a.execute(ctx, p, opts)

	return buildReport(len(shiftIDs), p, exec, opts.Objective), nil
}
