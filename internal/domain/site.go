package domain

import "time"

type Site struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Address         string    `json:"address"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	ServiceLevel    int32     `json:"serviceLevel"` // 客户服务等级 1-5
	RiskLevel       int32     `json:"riskLevel"`    // 风险等级 1-5
	SkillsMandatory bool      `json:"skillsMandatory"`
	CreatedAt       time.Time `json:"createdAt"`
	Version         int32     `json:"-"`
}

// SiteHistoryStats 为站点同类班次的历史排班统计，作为评分的软性输入
type SiteHistoryStats struct {
	SiteID          int64   `json:"siteID"`
	ShiftType       string  `json:"shiftType"`
	TotalShifts     int64   `json:"totalShifts"`
	StaffedShifts   int64   `json:"staffedShifts"`
	AvgSuccessRate  float64 `json:"avgSuccessRate"`
	AvgScore        float64 `json:"avgScore"`
}
