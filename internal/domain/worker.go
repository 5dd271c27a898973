package domain

import (
	"time"
)

type Role string

const (
	RoleGuard      Role = "保安"
	RoleDispatcher Role = "调度员"
	RoleAdmin      Role = "管理员"
)

type Worker struct {
	ID                 int64     `json:"id"`
	Username           string    `json:"username"`
	PasswordHash       string    `json:"-"`
	FullName           string    `json:"fullName"`
	Email              string    `json:"email"`
	Role               Role      `json:"role"`
	IsActive           bool      `json:"isActive"`
	Skills             []string  `json:"skills"`
	HourlyRate         float64   `json:"hourlyRate"`
	HomeLatitude       *float64  `json:"homeLatitude"`
	HomeLongitude      *float64  `json:"homeLongitude"`
	PreferredDays      []int32   `json:"preferredDays"`      // 1-7，为空表示不限
	PreferredStartHour *int32    `json:"preferredStartHour"` // 为 nil 表示不限
	PreferredEndHour   *int32    `json:"preferredEndHour"`
	CreatedAt          time.Time `json:"createdAt"`
	Version            int32     `json:"-"`
}

// WorkerSiteAffinity 为员工在某站点历史上被确认的班次数
type WorkerSiteAffinity struct {
	WorkerID    int64 `json:"workerID"`
	SiteID      int64 `json:"siteID"`
	Assignments int64 `json:"assignments"`
}

// WorkerStats 为员工的历史表现统计，各项指标均在 [0,1] 之间
// 数据库中没有记录时各项保持 nil，由调用方取中性值 0.5
type WorkerStats struct {
	WorkerID           int64    `json:"workerID"`
	AttendanceRate     *float64 `json:"attendanceRate"`
	PunctualityRate    *float64 `json:"punctualityRate"`
	QualityScore       *float64 `json:"qualityScore"`
	ClientSatisfaction *float64 `json:"clientSatisfaction"`
}
