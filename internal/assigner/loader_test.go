package assigner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vigilo-dev/vigilo/backend/internal/domain"
)

func TestEnrichShiftPriority(t *testing.T) {
	a, _, _ := newTestAssigner(&fakeStore{})
	start := time.Now().Add(200 * time.Hour)

	site := testSite(1)
	site.ServiceLevel = 3
	shift := testShift(10, site, start, 8)

	assert.Equal(t, 45.0, a.enrichShift(shift).Priority)

	shift.IsUrgent = true
	assert.Equal(t, 70.0, a.enrichShift(shift).Priority)

	// 最高服务等级加急也不超过 100
	site.ServiceLevel = 5
	assert.Equal(t, 100.0, a.enrichShift(shift).Priority)
}

func TestEnrichShiftUrgencyBands(t *testing.T) {
	a, _, _ := newTestAssigner(&fakeStore{})
	site := testSite(1)

	cases := []struct {
		until   time.Duration
		urgency float64
	}{
		{2 * time.Hour, 1.0},
		{12 * time.Hour, 0.8},
		{48 * time.Hour, 0.5},
		{200 * time.Hour, 0.2},
	}

	for _, tc := range cases {
		shift := testShift(10, site, time.Now().Add(tc.until), 8)
		assert.Equal(t, tc.urgency, a.enrichShift(shift).Urgency, "距开始 %v", tc.until)
	}
}

func TestEnrichShiftComplexity(t *testing.T) {
	a, _, _ := newTestAssigner(&fakeStore{})
	start := time.Now().Add(200 * time.Hour)

	site := testSite(1)
	site.RiskLevel = 2
	shift := testShift(10, site, start, 8, "armed", "cctv")

	// 0.15*2 + 0.1*2
	assert.InDelta(t, 0.5, a.enrichShift(shift).Complexity, 1e-9)

	// 封顶为 1
	site.RiskLevel = 5
	many := testShift(11, site, start, 8, "armed", "cctv", "patrol", "first_aid", "fire_safety")
	assert.Equal(t, 1.0, a.enrichShift(many).Complexity)
}

func TestEnrichShiftHistoryDegradesToNeutral(t *testing.T) {
	a, _, _ := newTestAssigner(&fakeStore{historyErr: errors.New("数据库连接中断")})
	site := testSite(1)
	shift := testShift(10, site, time.Now().Add(48*time.Hour), 8)

	enriched := a.enrichShift(shift)

	// 历史统计加载失败不影响富化本身，降级为中性值
	require.NotNil(t, enriched.History)
	assert.Equal(t, site.ID, enriched.History.SiteID)
	assert.Equal(t, 0.5, enriched.History.AvgSuccessRate)
	assert.Equal(t, 0.5, enriched.History.AvgScore)
	assert.Equal(t, 0.5, historyScore(enriched))
}

func TestRunToleratesHistoryLoadFailure(t *testing.T) {
	site := testSite(1)
	start := time.Now().Add(48 * time.Hour)
	store := &fakeStore{
		shifts:     []*domain.Shift{testShift(10, site, start, 8)},
		workers:    []*domain.Worker{testWorker(1, 20)},
		historyErr: errors.New("数据库连接中断"),
	}
	a, _, _ := newTestAssigner(store)

	report, err := a.Run(context.Background(), []int64{10}, Options{AllowPartial: true})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Assigned)
}

func TestPerformanceComposite(t *testing.T) {
	assert.Equal(t, 0.5, performanceComposite(nil))

	full := 1.0
	half := 0.5
	assert.Equal(t, 1.0, performanceComposite(&domain.WorkerStats{
		AttendanceRate: &full, PunctualityRate: &full, QualityScore: &full, ClientSatisfaction: &full,
	}))

	// 缺数据的指标取中性值 0.5
	assert.InDelta(t, 0.625, performanceComposite(&domain.WorkerStats{
		AttendanceRate: &full, QualityScore: &half,
	}), 1e-9)
}

func TestLoadWorkforceCommittedHours(t *testing.T) {
	site := testSite(1)
	day := time.Now().Add(72 * time.Hour).Truncate(time.Hour)

	workerID := int64(1)
	first := testShift(90, site, day, 8)
	first.Status = domain.ShiftStatusConfirmed
	first.AssignedWorkerID = &workerID
	second := testShift(91, site, day.Add(24*time.Hour), 10)
	second.Status = domain.ShiftStatusConfirmed
	second.AssignedWorkerID = &workerID

	store := &fakeStore{
		workers:    []*domain.Worker{testWorker(workerID, 20)},
		confirmed:  []*domain.Shift{first, second},
		affinities: []*domain.WorkerSiteAffinity{{WorkerID: workerID, SiteID: site.ID, Assignments: 4}},
	}
	a, _, _ := newTestAssigner(store)

	workers, err := a.loadWorkforce(day, day.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, workers, 1)

	assert.Equal(t, 18.0, workers[0].CommittedHours)
	assert.InDelta(t, 0.45, workers[0].Utilization, 1e-9)
	assert.Len(t, workers[0].Committed, 2)
	assert.Equal(t, int64(4), workers[0].SiteAffinity[site.ID])
	assert.Equal(t, 0.5, workers[0].Performance)
}
