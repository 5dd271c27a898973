package domain

import "time"

type ShiftStatus string

const (
	ShiftStatusOpen      ShiftStatus = "open"
	ShiftStatusConfirmed ShiftStatus = "confirmed"
	ShiftStatusCancelled ShiftStatus = "cancelled"
)

type Shift struct {
	ID               int64       `json:"id"`
	SiteID           int64       `json:"siteID"`
	ShiftType        string      `json:"shiftType"` // day / night / event
	StartTime        time.Time   `json:"startTime"`
	EndTime          time.Time   `json:"endTime"`
	RequiredSkills   []string    `json:"requiredSkills"`
	Status           ShiftStatus `json:"status"`
	IsUrgent         bool        `json:"isUrgent"`
	HourlyBudget     float64     `json:"hourlyBudget"`
	AssignedWorkerID *int64      `json:"assignedWorkerID"`
	AssignmentMethod *string     `json:"assignmentMethod"`
	AssignmentScore  *float64    `json:"assignmentScore"`
	CreatedAt        time.Time   `json:"createdAt"`
	Version          int32       `json:"-"`

	// 以下字段由仓库层联表查出，不单独存储
	Site *Site `json:"site,omitempty"`
}

// Hours 返回班次的时长（小时）
func (s *Shift) Hours() float64 {
	return s.EndTime.Sub(s.StartTime).Hours()
}

// Overlaps 判断两个时间段是否重叠
func (s *Shift) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}
