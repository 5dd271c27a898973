package utils

import (
	"errors"
	"time"
)

// ValidateShiftWindow 校验班次的起止时间
func ValidateShiftWindow(start, end time.Time) error {
	if !end.After(start) {
		return errors.New("班次结束时间必须晚于开始时间")
	}
	if end.Sub(start) > 24*time.Hour {
		return errors.New("单个班次时长不能超过 24 小时")
	}
	return nil
}
