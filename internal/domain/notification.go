package domain

type NotificationMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type ShiftAssignmentMailData struct {
	FullName  string  `json:"fullName"`
	SiteName  string  `json:"siteName"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
	Score     float64 `json:"score"`
}

type CreateWorkerMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}
