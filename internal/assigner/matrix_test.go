package assigner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

func enriched(shift *domain.Shift) *EnrichedShift {
	return &EnrichedShift{Shift: shift}
}

func enrichedWorker(worker *domain.Worker) *EnrichedWorker {
	return &EnrichedWorker{Worker: worker, Performance: 0.5, SiteAffinity: map[int64]int64{}}
}

func TestSkillScore(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	shift := enriched(testShift(10, site, start, 8, "armed", "cctv"))

	assert.Equal(t, 1.0, skillScore(shift, enrichedWorker(testWorker(1, 20, "armed", "cctv", "patrol"))))
	assert.Equal(t, 0.5, skillScore(shift, enrichedWorker(testWorker(2, 20, "armed"))))
	assert.Equal(t, 0.0, skillScore(shift, enrichedWorker(testWorker(3, 20, "patrol"))))

	// 不需要技能时为满分
	noSkills := enriched(testShift(11, site, start, 8))
	assert.Equal(t, 1.0, skillScore(noSkills, enrichedWorker(testWorker(4, 20))))
}

func TestAvailabilityScore(t *testing.T) {
	site := testSite(1)
	// 2026-09-07 是周一
	monday := time.Date(2026, 9, 7, 10, 0, 0, 0, time.Local)
	shift := enriched(testShift(10, site, monday, 4))

	// 没有偏好视为完全可用
	assert.Equal(t, 1.0, availabilityScore(shift, enrichedWorker(testWorker(1, 20))))

	// 不在偏好的星期乘 0.5
	weekendOnly := testWorker(2, 20)
	weekendOnly.PreferredDays = []int32{6, 7}
	assert.Equal(t, 0.5, availabilityScore(shift, enrichedWorker(weekendOnly)))

	// 不在偏好的时段乘 0.7
	nightOwl := testWorker(3, 20)
	nightStart, nightEnd := int32(18), int32(23)
	nightOwl.PreferredStartHour, nightOwl.PreferredEndHour = &nightStart, &nightEnd
	assert.Equal(t, 0.7, availabilityScore(shift, enrichedWorker(nightOwl)))

	// 两个惩罚相乘
	both := testWorker(4, 20)
	both.PreferredDays = []int32{6, 7}
	both.PreferredStartHour, both.PreferredEndHour = &nightStart, &nightEnd
	assert.InDelta(t, 0.35, availabilityScore(shift, enrichedWorker(both)), 1e-9)

	// 时间冲突直接为 0
	conflicted := enrichedWorker(testWorker(5, 20))
	committed := testShift(99, site, monday.Add(-time.Hour), 8)
	committed.Status = domain.ShiftStatusConfirmed
	conflicted.Committed = []*domain.Shift{committed}
	assert.Equal(t, 0.0, availabilityScore(shift, conflicted))
}

func TestAvailabilityIgnoresCancelledShifts(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)
	shift := enriched(testShift(10, site, start, 4))

	worker := enrichedWorker(testWorker(1, 20))
	cancelled := testShift(99, site, start, 4)
	cancelled.Status = domain.ShiftStatusCancelled
	worker.Committed = []*domain.Shift{cancelled}

	assert.Equal(t, 1.0, availabilityScore(shift, worker))
}

func TestProximityScore(t *testing.T) {
	a, _, _ := newTestAssigner(&fakeStore{})

	site := testSite(1)
	lat, lon := 23.13, 113.26
	site.Latitude, site.Longitude = &lat, &lon
	start := time.Now().Add(48 * time.Hour)
	shift := enriched(testShift(10, site, start, 8))

	// 任一方没有位置信息时取中性值
	assert.Equal(t, 0.5, a.proximityScore(shift, enrichedWorker(testWorker(1, 20))))

	// 同一位置满分
	same := testWorker(2, 20)
	same.HomeLatitude, same.HomeLongitude = &lat, &lon
	assert.Equal(t, 1.0, a.proximityScore(shift, enrichedWorker(same)))

	// 远超归一化上限时为 0（广州到北京约 1890 公里）
	far := testWorker(3, 20)
	farLat, farLon := 39.9, 116.4
	far.HomeLatitude, far.HomeLongitude = &farLat, &farLon
	assert.Equal(t, 0.0, a.proximityScore(shift, enrichedWorker(far)))
}

func TestHaversineKm(t *testing.T) {
	// 广州塔到白云机场约 32 公里
	distance := haversineKm(23.1066, 113.3245, 23.3924, 113.2988)
	assert.InDelta(t, 32, distance, 3)

	assert.Equal(t, 0.0, haversineKm(23.1, 113.3, 23.1, 113.3))
}

func TestWorkloadScore(t *testing.T) {
	assert.Equal(t, 1.0, workloadScore(0))
	assert.Equal(t, 1.0, workloadScore(0.69))
	assert.Equal(t, 0.8, workloadScore(0.7))
	assert.Equal(t, 0.5, workloadScore(0.9))
	assert.Equal(t, 0.1, workloadScore(1.0))
	assert.Equal(t, 0.1, workloadScore(1.5))
}

func TestCostScore(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)
	shift := enriched(testShift(10, site, start, 8)) // 预算 40

	assert.Equal(t, 1.0, costScore(shift, enrichedWorker(testWorker(1, 0))))
	assert.Equal(t, 0.75, costScore(shift, enrichedWorker(testWorker(2, 20))))
	assert.Equal(t, 0.5, costScore(shift, enrichedWorker(testWorker(3, 40))))
	assert.Equal(t, 0.0, costScore(shift, enrichedWorker(testWorker(4, 80))))

	// 没有预算信息时取中性值
	noBudget := testShift(11, site, start, 8)
	noBudget.HourlyBudget = 0
	assert.Equal(t, 0.5, costScore(enriched(noBudget), enrichedWorker(testWorker(5, 20))))
}

func TestPreferenceScoreAffinityCap(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)
	shift := enriched(testShift(10, site, start, 8))

	worker := enrichedWorker(testWorker(1, 20))
	// 没有亲和度、历史中性、没有偏好：0.4*0 + 0.2*0.5 + 0.2 + 0.2
	assert.InDelta(t, 0.5, preferenceScore(shift, worker), 1e-9)

	worker.SiteAffinity[site.ID] = 5
	assert.InDelta(t, 0.7, preferenceScore(shift, worker), 1e-9)

	// 10 次封顶
	worker.SiteAffinity[site.ID] = 30
	assert.InDelta(t, 0.9, preferenceScore(shift, worker), 1e-9)
}

func TestHistoryScore(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)
	shift := enriched(testShift(10, site, start, 8))

	// 没有历史记录时取中性值
	assert.Equal(t, 0.5, historyScore(shift))
	shift.History = &domain.SiteHistoryStats{SiteID: site.ID}
	assert.Equal(t, 0.5, historyScore(shift))

	shift.History = &domain.SiteHistoryStats{SiteID: site.ID, TotalShifts: 10, AvgSuccessRate: 1.0, AvgScore: 0.8}
	assert.InDelta(t, 0.9, historyScore(shift), 1e-9)

	shift.History = &domain.SiteHistoryStats{SiteID: site.ID, TotalShifts: 10, AvgSuccessRate: 0.0, AvgScore: 0.0}
	assert.Equal(t, 0.0, historyScore(shift))
}

func TestPreferenceScoreUsesSiteHistory(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)
	worker := enrichedWorker(testWorker(1, 20))

	good := enriched(testShift(10, site, start, 8))
	good.History = &domain.SiteHistoryStats{SiteID: site.ID, TotalShifts: 10, AvgSuccessRate: 1.0, AvgScore: 1.0}
	bad := enriched(testShift(11, site, start, 8))
	bad.History = &domain.SiteHistoryStats{SiteID: site.ID, TotalShifts: 10, AvgSuccessRate: 0.0, AvgScore: 0.0}

	assert.Greater(t, preferenceScore(good, worker), preferenceScore(bad, worker))
	assert.InDelta(t, 0.2, preferenceScore(good, worker)-preferenceScore(bad, worker), 1e-9)
}

func TestIsoWeekday(t *testing.T) {
	assert.Equal(t, int32(1), isoWeekday(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)))  // 周一
	assert.Equal(t, int32(7), isoWeekday(time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC))) // 周日
}

func TestEvaluatePairScoreBounds(t *testing.T) {
	a, _, _ := newTestAssigner(&fakeStore{})
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)
	shift := enriched(testShift(10, site, start, 8, "armed"))
	worker := enrichedWorker(testWorker(1, 20, "armed"))

	candidate := a.evaluatePair(shift, worker, DefaultWeights())

	assert.GreaterOrEqual(t, candidate.Score, 0.0)
	assert.LessOrEqual(t, candidate.Score, 1.0)
	assert.Equal(t, 20.0*8, candidate.EstimatedCost)
	assert.True(t, candidate.Feasible)
	require.Len(t, candidate.Constraints, 3)

	// 同样的输入必须得到同样的结果
	again := a.evaluatePair(shift, worker, DefaultWeights())
	assert.Equal(t, candidate.Score, again.Score)
	assert.Equal(t, candidate.Factors, again.Factors)
}

func TestEvaluateConstraintsUtilization(t *testing.T) {
	a, _, _ := newTestAssigner(&fakeStore{})
	site := testSite(1)
	day := time.Now().Add(72 * time.Hour).Truncate(time.Hour)
	shift := enriched(testShift(10, site, day, 6))

	worker := enrichedWorker(testWorker(1, 20))
	worker.CommittedHours = 38

	results := a.evaluateConstraints(shift, worker)
	require.Len(t, results, 3)

	var util *domain.ConstraintResult
	for i := range results {
		if results[i].Name == ConstraintUtilization {
			util = &results[i]
		}
	}
	require.NotNil(t, util)
	assert.False(t, util.Passed)
	assert.Equal(t, domain.ConstraintBlocking, util.Severity)
	assert.False(t, feasible(results))
}

func TestEvaluateConstraintsSkillSeverity(t *testing.T) {
	a, _, _ := newTestAssigner(&fakeStore{})
	start := time.Now().Add(48 * time.Hour)

	lenient := testSite(1)
	strict := testSite(2)
	strict.SkillsMandatory = true

	worker := enrichedWorker(testWorker(1, 20, "patrol"))

	softResults := a.evaluateConstraints(enriched(testShift(10, lenient, start, 8, "armed")), worker)
	hardResults := a.evaluateConstraints(enriched(testShift(11, strict, start, 8, "armed")), worker)

	findSkill := func(results []domain.ConstraintResult) domain.ConstraintResult {
		for _, c := range results {
			if c.Name == ConstraintSkillGap {
				return c
			}
		}
		t.Fatal("缺少技能约束的评估结果")
		return domain.ConstraintResult{}
	}

	soft := findSkill(softResults)
	assert.False(t, soft.Passed)
	assert.Equal(t, domain.ConstraintAdvisory, soft.Severity)
	assert.True(t, feasible(softResults))

	hard := findSkill(hardResults)
	assert.False(t, hard.Passed)
	assert.Equal(t, domain.ConstraintBlocking, hard.Severity)
	assert.False(t, feasible(hardResults))
}

func TestBuildMatrixOrdering(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)

	batch := &batchContext{
		Shifts: []*EnrichedShift{enriched(testShift(10, site, start, 8, "armed"))},
		Workers: []*EnrichedWorker{
			enrichedWorker(testWorker(5, 20)),          // 无技能
			enrichedWorker(testWorker(2, 20, "armed")), // 有技能
			enrichedWorker(testWorker(1, 20, "armed")), // 有技能，ID 更小
		},
	}

	for _, parallel := range []bool{true, false} {
		a, _, _ := newTestAssigner(&fakeStore{})
		a.cfg.Optimizer.ParallelScoring = parallel

		matrix := a.buildMatrix(batch, DefaultWeights())
		require.Len(t, matrix, 1)
		require.Len(t, matrix[0], 3)

		// 分数降序，同分按员工 ID 升序
		assert.Equal(t, int64(1), matrix[0][0].Worker.ID)
		assert.Equal(t, int64(2), matrix[0][1].Worker.ID)
		assert.Equal(t, int64(5), matrix[0][2].Worker.ID)
	}
}
