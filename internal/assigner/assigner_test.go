package assigner

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigilo-dev/vigilo/backend/internal/config"
	"github.com/vigilo-dev/vigilo/backend/internal/domain"
	"github.com/vigilo-dev/vigilo/backend/internal/repository"
)

// fakeStore 为测试用的内存持久层
type fakeStore struct {
	shifts     []*domain.Shift
	workers    []*domain.Worker
	confirmed  []*domain.Shift
	stats      []*domain.WorkerStats
	affinities []*domain.WorkerSiteAffinity

	history    *domain.SiteHistoryStats
	historyErr error

	commitErr map[int64]error // shiftID -> 提交时要返回的错误

	committed []fakeCommit
	audits    []*domain.AssignmentAudit
}

type fakeCommit struct {
	ShiftID  int64
	WorkerID int64
	Score    float64
	Method   string
}

func (f *fakeStore) GetShiftsByIDs(ids []int64) ([]*domain.Shift, error) {
	byID := make(map[int64]*domain.Shift, len(f.shifts))
	for _, shift := range f.shifts {
		byID[shift.ID] = shift
	}

	result := make([]*domain.Shift, 0, len(ids))
	for _, id := range ids {
		if shift, exists := byID[id]; exists {
			result = append(result, shift)
		}
	}
	return result, nil
}

func (f *fakeStore) GetSiteHistoryStats(siteID int64, shiftType string) (*domain.SiteHistoryStats, error) {
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	if f.history != nil {
		return f.history, nil
	}
	return &domain.SiteHistoryStats{SiteID: siteID, ShiftType: shiftType}, nil
}

func (f *fakeStore) GetActiveWorkers() ([]*domain.Worker, error) {
	return f.workers, nil
}

func (f *fakeStore) GetConfirmedShiftsInWindow(start, end time.Time) ([]*domain.Shift, error) {
	return f.confirmed, nil
}

func (f *fakeStore) GetAllWorkerStats() ([]*domain.WorkerStats, error) {
	return f.stats, nil
}

func (f *fakeStore) GetWorkerSiteAffinities() ([]*domain.WorkerSiteAffinity, error) {
	return f.affinities, nil
}

func (f *fakeStore) CommitAssignment(shift *domain.Shift, workerID int64, score float64, method string) error {
	if err, exists := f.commitErr[shift.ID]; exists {
		return err
	}
	f.committed = append(f.committed, fakeCommit{ShiftID: shift.ID, WorkerID: workerID, Score: score, Method: method})
	return nil
}

func (f *fakeStore) InsertAssignmentAudit(audit *domain.AssignmentAudit) error {
	f.audits = append(f.audits, audit)
	return nil
}

type fakeNotifier struct {
	messages []*domain.NotificationMessage
}

func (f *fakeNotifier) Notify(ctx context.Context, msg *domain.NotificationMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

type fakeRealtime struct {
	events []string
}

func (f *fakeRealtime) PublishToWorker(ctx context.Context, workerID int64, event string, payload any) error {
	f.events = append(f.events, fmt.Sprintf("%d:%s", workerID, event))
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Optimizer.MaxWeeklyHours = 40
	cfg.Optimizer.MaxDistanceKm = 50
	cfg.Optimizer.CostTolerance = 0.05
	cfg.Optimizer.NotifyTimeout = 5
	cfg.Optimizer.RealtimeTimeout = 3
	cfg.Optimizer.ParallelScoring = true
	return cfg
}

func testSite(id int64) *domain.Site {
	return &domain.Site{
		ID:           id,
		Name:         fmt.Sprintf("站点%d", id),
		Address:      "测试地址",
		ServiceLevel: 3,
		RiskLevel:    2,
	}
}

func testShift(id int64, site *domain.Site, start time.Time, hours int, skills ...string) *domain.Shift {
	return &domain.Shift{
		ID:             id,
		SiteID:         site.ID,
		ShiftType:      "day",
		StartTime:      start,
		EndTime:        start.Add(time.Duration(hours) * time.Hour),
		RequiredSkills: skills,
		Status:         domain.ShiftStatusOpen,
		HourlyBudget:   40,
		Site:           site,
	}
}

func testWorker(id int64, rate float64, skills ...string) *domain.Worker {
	return &domain.Worker{
		ID:         id,
		Username:   fmt.Sprintf("worker%d", id),
		FullName:   fmt.Sprintf("保安%d", id),
		Email:      fmt.Sprintf("worker%d@example.com", id),
		Role:       domain.RoleGuard,
		IsActive:   true,
		Skills:     skills,
		HourlyRate: rate,
	}
}

func newTestAssigner(store *fakeStore) (*Assigner, *fakeNotifier, *fakeRealtime) {
	notifier := &fakeNotifier{}
	realtime := &fakeRealtime{}
	return New(testConfig(), store, notifier, realtime), notifier, realtime
}

func TestRunEmptyShiftIDs(t *testing.T) {
	store := &fakeStore{}
	a, _, _ := newTestAssigner(store)

	_, err := a.Run(context.Background(), []int64{}, Options{})
	require.Error(t, err)
}

func TestRunInvalidObjective(t *testing.T) {
	store := &fakeStore{}
	a, _, _ := newTestAssigner(store)

	_, err := a.Run(context.Background(), []int64{1}, Options{Objective: "fastest"})
	require.Error(t, err)
}

func TestRunInvalidWeights(t *testing.T) {
	store := &fakeStore{}
	a, _, _ := newTestAssigner(store)

	_, err := a.Run(context.Background(), []int64{1}, Options{Weights: Weights{Skill: 1, Cost: 1}})
	require.Error(t, err)
}

func TestRunBasicAssignment(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)
	store := &fakeStore{
		shifts:  []*domain.Shift{testShift(10, site, start, 8, "armed")},
		workers: []*domain.Worker{testWorker(1, 30, "armed", "patrol")},
	}
	a, notifier, realtime := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10}, Options{Notify: true, AllowPartial: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Assigned)
	assert.Empty(t, report.Unassigned)
	assert.Empty(t, report.Failures)
	require.Len(t, report.Assignments, 1)

	assignment := report.Assignments[0]
	assert.Equal(t, int64(10), assignment.ShiftID)
	assert.Equal(t, int64(1), assignment.WorkerID)
	assert.Equal(t, 1.0, assignment.Factors.Skill)
	assert.GreaterOrEqual(t, assignment.Score, 0.0)
	assert.LessOrEqual(t, assignment.Score, 1.0)
	assert.Equal(t, 30.0*8, assignment.EstimatedCost)

	// 持久层提交与审计
	require.Len(t, store.committed, 1)
	assert.Equal(t, domain.AssignmentMethodIntelligent, store.committed[0].Method)
	require.Len(t, store.audits, 1)
	assert.Equal(t, int64(10), store.audits[0].ShiftID)
	assert.NotEmpty(t, store.audits[0].Justification)
	assert.Len(t, store.audits[0].Constraints, 3)

	// 协作方
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "shift_assignment", notifier.messages[0].Type)
	assert.Equal(t, []string{"1:shift_assigned"}, realtime.events)
}

func TestRunSiteHistoryInfluencesScore(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	runWith := func(history *domain.SiteHistoryStats) *BatchReport {
		store := &fakeStore{
			shifts:  []*domain.Shift{testShift(10, site, start, 8, "armed")},
			workers: []*domain.Worker{testWorker(1, 30, "armed")},
			history: history,
		}
		a, _, _ := newTestAssigner(store)
		report, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
		require.NoError(t, err)
		require.Len(t, report.Assignments, 1)
		return report
	}

	good := runWith(&domain.SiteHistoryStats{SiteID: site.ID, ShiftType: "day", TotalShifts: 20, AvgSuccessRate: 1.0, AvgScore: 1.0})
	bad := runWith(&domain.SiteHistoryStats{SiteID: site.ID, ShiftType: "day", TotalShifts: 20, AvgSuccessRate: 0.0, AvgScore: 0.0})

	// 历史排班质量通过偏好因子进入综合评分
	assert.Greater(t, good.Assignments[0].Score, bad.Assignments[0].Score)
	assert.Greater(t, good.Assignments[0].Factors.Preference, bad.Assignments[0].Factors.Preference)
}

func TestRunWithoutNotify(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)
	store := &fakeStore{
		shifts:  []*domain.Shift{testShift(10, site, start, 8)},
		workers: []*domain.Worker{testWorker(1, 30)},
	}
	a, notifier, realtime := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Assigned)
	assert.Empty(t, notifier.messages)
	// 实时事件与通知开关无关，始终尽力而为
	assert.Len(t, realtime.events, 1)
}

func TestRunTimeConflictExcluded(t *testing.T) {
	site := testSite(1)
	day := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	workerID := int64(1)
	existing := testShift(99, site, day.Add(-1*time.Hour), 8) // 09:00 - 17:00 相对于 10:00 的班次
	existing.Status = domain.ShiftStatusConfirmed
	existing.AssignedWorkerID = &workerID

	store := &fakeStore{
		shifts:    []*domain.Shift{testShift(10, site, day, 4)}, // 与已确认班次重叠
		workers:   []*domain.Worker{testWorker(workerID, 30)},
		confirmed: []*domain.Shift{existing},
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Assigned)
	require.Len(t, report.Unassigned, 1)
	assert.Equal(t, ReasonNoFeasible, report.Unassigned[0].Reason)
	assert.Empty(t, store.committed)
}

func TestRunUtilizationCeiling(t *testing.T) {
	site := testSite(1)
	day := time.Now().Add(72 * time.Hour).Truncate(time.Hour)

	workerID := int64(1)
	// 已承担 38 小时，不与目标班次重叠
	existing := testShift(99, site, day.Add(-80*time.Hour), 38)
	existing.Status = domain.ShiftStatusConfirmed
	existing.AssignedWorkerID = &workerID

	store := &fakeStore{
		shifts:    []*domain.Shift{testShift(10, site, day, 6)}, // 38 + 6 > 40
		workers:   []*domain.Worker{testWorker(workerID, 30)},
		confirmed: []*domain.Shift{existing},
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Assigned)
	require.Len(t, report.Unassigned, 1)
	assert.Equal(t, ReasonNoFeasible, report.Unassigned[0].Reason)
}

func TestRunMandatorySkillsBlock(t *testing.T) {
	site := testSite(1)
	site.SkillsMandatory = true
	start := time.Now().Add(48 * time.Hour)

	store := &fakeStore{
		shifts:  []*domain.Shift{testShift(10, site, start, 8, "armed")},
		workers: []*domain.Worker{testWorker(1, 30, "patrol")}, // 缺少 armed
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Assigned)
	require.Len(t, report.Unassigned, 1)
	assert.Equal(t, ReasonNoFeasible, report.Unassigned[0].Reason)
}

func TestRunAdvisorySkillGapStillAssigns(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	store := &fakeStore{
		shifts:  []*domain.Shift{testShift(10, site, start, 8, "armed")},
		workers: []*domain.Worker{testWorker(1, 30, "patrol")},
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)

	// 站点不要求零容忍，技能缺失只降低分数
	assert.Equal(t, 1, report.Assigned)
	require.Len(t, report.Assignments, 1)
	assert.Equal(t, 0.0, report.Assignments[0].Factors.Skill)
}

func TestRunPartialBatch(t *testing.T) {
	site := testSite(1)
	day := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	// 两个同时段的班次，只有一个员工
	store := &fakeStore{
		shifts: []*domain.Shift{
			testShift(10, site, day, 8),
			testShift(11, site, day, 8),
		},
		workers: []*domain.Worker{testWorker(1, 30)},
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10, 11}, Options{AllowPartial: true})
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRequested)
	assert.Equal(t, 1, report.Assigned)
	require.Len(t, report.Unassigned, 1)
	assert.Equal(t, ReasonAllClaimed, report.Unassigned[0].Reason)
	assert.Len(t, store.committed, 1)
}

func TestRunPartialNotAllowed(t *testing.T) {
	site := testSite(1)
	day := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	store := &fakeStore{
		shifts: []*domain.Shift{
			testShift(10, site, day, 8),
			testShift(11, site, day, 8),
		},
		workers: []*domain.Worker{testWorker(1, 30)},
	}
	a, notifier, _ := newTestAssigner(store)

	_, err := a.Run(context.Background(), []int64{10, 11}, Options{Notify: true, AllowPartial: false})
	require.Error(t, err)

	// 批次在写库前放弃，不应有任何副作用
	assert.Empty(t, store.committed)
	assert.Empty(t, store.audits)
	assert.Empty(t, notifier.messages)
}

func TestRunSkipsNonOpenShifts(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	confirmed := testShift(10, site, start, 8)
	confirmed.Status = domain.ShiftStatusConfirmed

	store := &fakeStore{
		shifts:  []*domain.Shift{confirmed, testShift(11, site, start.Add(24*time.Hour), 8)},
		workers: []*domain.Worker{testWorker(1, 30)},
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10, 11}, Options{AllowPartial: true})
	require.NoError(t, err)

	// 已确认的班次被排除，重复提交同一批次不会重复派班
	assert.Equal(t, 1, report.Assigned)
	require.Len(t, report.Unassigned, 1)
	assert.Equal(t, int64(10), report.Unassigned[0].ShiftID)
	assert.Equal(t, "班次不是待派状态", report.Unassigned[0].Reason)
}

func TestRunUnknownIDsSilentlyExcluded(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	store := &fakeStore{
		shifts:  []*domain.Shift{testShift(10, site, start, 8)},
		workers: []*domain.Worker{testWorker(1, 30)},
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10, 404}, Options{AllowPartial: true})
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalRequested)
	assert.Equal(t, 1, report.Assigned)
	assert.Empty(t, report.Unassigned)
}

func TestRunCommitConflictTolerated(t *testing.T) {
	site := testSite(1)
	day := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	store := &fakeStore{
		shifts: []*domain.Shift{
			testShift(10, site, day, 8),
			testShift(11, site, day.Add(24*time.Hour), 8),
		},
		workers: []*domain.Worker{
			testWorker(1, 30),
			testWorker(2, 30),
		},
		commitErr: map[int64]error{10: repository.ErrAssignmentConflict},
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10, 11}, Options{AllowPartial: true})
	require.NoError(t, err)

	// 一个派班被并发修改抢先，另一个不受影响
	assert.Equal(t, 1, report.Assigned)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, int64(10), report.Failures[0].ShiftID)
	assert.Equal(t, "班次或员工已被并发修改", report.Failures[0].Reason)
	assert.Len(t, store.committed, 1)
}

func TestRunObjectiveCostPrefersCheaper(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	// 表现更好但更贵的员工 vs 便宜但表现一般的员工
	perfect := 1.0
	store := &fakeStore{
		shifts: []*domain.Shift{testShift(10, site, start, 8)},
		workers: []*domain.Worker{
			testWorker(1, 30),
			testWorker(2, 10),
		},
		stats: []*domain.WorkerStats{
			{WorkerID: 1, AttendanceRate: &perfect, PunctualityRate: &perfect, QualityScore: &perfect, ClientSatisfaction: &perfect},
		},
	}
	a, _, _ := newTestAssigner(store)
	a.cfg.Optimizer.CostTolerance = 0.1

	balanced, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)
	require.Len(t, balanced.Assignments, 1)
	assert.Equal(t, int64(1), balanced.Assignments[0].WorkerID)

	// 重置提交记录后换 cost 目标再跑一次
	store.committed = nil
	store.audits = nil

	cost, err := a.Run(context.Background(), []int64{10}, Options{Objective: ObjectiveCost, AllowPartial: true})
	require.NoError(t, err)
	require.Len(t, cost.Assignments, 1)
	assert.Equal(t, int64(2), cost.Assignments[0].WorkerID)
}

func TestRunObjectiveQualityPrefersPerformance(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	// 员工 2 表现更好但时薪高，综合分略低于员工 1；quality 目标应在允许的分数损失内换成员工 2
	good := 0.6
	store := &fakeStore{
		shifts: []*domain.Shift{testShift(10, site, start, 8)},
		workers: []*domain.Worker{
			testWorker(1, 10),
			testWorker(2, 40),
		},
		stats: []*domain.WorkerStats{
			{WorkerID: 2, AttendanceRate: &good, PunctualityRate: &good, QualityScore: &good, ClientSatisfaction: &good},
		},
	}
	a, _, _ := newTestAssigner(store)

	balanced, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)
	require.Len(t, balanced.Assignments, 1)
	assert.Equal(t, int64(1), balanced.Assignments[0].WorkerID)

	store.committed = nil
	store.audits = nil

	quality, err := a.Run(context.Background(), []int64{10}, Options{Objective: ObjectiveQuality, AllowPartial: true})
	require.NoError(t, err)
	require.Len(t, quality.Assignments, 1)
	assert.Equal(t, int64(2), quality.Assignments[0].WorkerID)
}

func TestRunObjectiveCoverageFillsMore(t *testing.T) {
	site := testSite(1)
	day := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	// 员工 1 两个班次都能干，员工 2 只具备第一个班次的技能
	// 贪心会把员工 1 派给更靠前的班次，导致第二个班次没人；coverage 目标应换人补齐
	shift1 := testShift(10, site, day, 8, "patrol")
	shift2 := testShift(11, site, day, 8, "armed")
	site.SkillsMandatory = true

	store := &fakeStore{
		shifts: []*domain.Shift{shift1, shift2},
		workers: []*domain.Worker{
			testWorker(1, 30, "patrol", "armed"),
			testWorker(2, 30, "patrol"),
		},
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10, 11}, Options{Objective: ObjectiveCoverage, AllowPartial: true})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Assigned)
	assert.Empty(t, report.Unassigned)

	byShift := make(map[int64]int64)
	for _, assignment := range report.Assignments {
		byShift[assignment.ShiftID] = assignment.WorkerID
	}
	assert.Equal(t, int64(2), byShift[10])
	assert.Equal(t, int64(1), byShift[11])
}

func TestRunDeterministic(t *testing.T) {
	site := testSite(1)
	day := time.Now().Add(48 * time.Hour).Truncate(time.Hour)

	build := func() *fakeStore {
		return &fakeStore{
			shifts: []*domain.Shift{
				testShift(10, site, day, 8),
				testShift(11, site, day.Add(10*time.Hour), 8),
				testShift(12, site, day.Add(24*time.Hour), 8),
			},
			workers: []*domain.Worker{
				testWorker(3, 20),
				testWorker(1, 20),
				testWorker(2, 20),
			},
		}
	}

	run := func() []AssignmentReport {
		a, _, _ := newTestAssigner(build())
		report, err := a.Run(context.Background(), []int64{10, 11, 12}, Options{AllowPartial: true})
		require.NoError(t, err)
		return report.Assignments
	}

	first := run()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, run())
	}
}

func TestRunTieBreaksByWorkerID(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	// 两个完全等价的员工，应稳定选 ID 更小的那个
	store := &fakeStore{
		shifts: []*domain.Shift{testShift(10, site, start, 8)},
		workers: []*domain.Worker{
			testWorker(7, 20),
			testWorker(3, 20),
		},
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)
	require.Len(t, report.Assignments, 1)
	assert.Equal(t, int64(3), report.Assignments[0].WorkerID)
}

func TestRunCancelledContextSkipsExecution(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	store := &fakeStore{
		shifts:  []*domain.Shift{testShift(10, site, start, 8)},
		workers: []*domain.Worker{testWorker(1, 30)},
	}
	a, _, _ := newTestAssigner(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := a.Run(ctx, []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)

	assert.Equal(t, 0, report.Assigned)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "批次被取消，未执行", report.Failures[0].Reason)
	assert.Empty(t, store.committed)
}
