package utils

import (
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/vigilo-dev/vigilo/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "勇", "霞", "飞", "玲",
	"超", "华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌",
	"庆", "建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// 安保行业常见的技能编码
var SkillPool = []string{"armed", "patrol", "cctv", "access_control", "first_aid", "fire_safety", "crowd_control"}

var digits = "0123456789"

func GenerateUsernameFromChineseName(chineseName string) string {
	pinyinArray := pinyin.LazyConvert(chineseName, nil)
	username := ""

	for _, p := range pinyinArray {
		length := rand.Intn(len(p)) + 1
		username += p[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		username += string(digits[rand.Intn(len(digits))])
	}

	return username
}

// GenerateRandomWorker 生成一个随机保安，用于演示数据
func GenerateRandomWorker(password string, emailDomainName string) (*domain.Worker, error) {
	fullName := GenerateRandomChineseName()
	username := GenerateUsernameFromChineseName(fullName)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// 随机挑 1-3 个技能
	skillCount := rand.Intn(3) + 1
	skills := make([]string, 0, skillCount)
	seen := make(map[string]bool)
	for len(skills) < skillCount {
		skill := SkillPool[rand.Intn(len(SkillPool))]
		if seen[skill] {
			continue
		}
		seen[skill] = true
		skills = append(skills, skill)
	}

	// 广州市区附近的随机位置
	latitude := 23.1 + rand.Float64()*0.2
	longitude := 113.2 + rand.Float64()*0.3

	worker := &domain.Worker{
		Username:      username,
		PasswordHash:  string(passwordHash),
		FullName:      fullName,
		Email:         username + "@" + emailDomainName,
		Role:          domain.RoleGuard,
		Skills:        skills,
		HourlyRate:    15 + rand.Float64()*25,
		HomeLatitude:  &latitude,
		HomeLongitude: &longitude,
	}

	// 一半人填写了偏好的星期
	if rand.Intn(2) == 0 {
		dayCount := rand.Intn(4) + 2
		for day := int32(1); day <= 7 && len(worker.PreferredDays) < dayCount; day++ {
			if rand.Intn(2) == 0 {
				worker.PreferredDays = append(worker.PreferredDays, day)
			}
		}
	}

	return worker, nil
}

var siteNameParts = []string{"天河", "越秀", "海珠", "番禺", "白云", "黄埔", "荔湾", "南沙"}
var siteNameSuffixes = []string{"科技园", "商业广场", "物流园", "写字楼", "住宅区", "会展中心"}

// GenerateRandomSite 生成一个随机站点，用于演示数据
func GenerateRandomSite() *domain.Site {
	latitude := 23.0 + rand.Float64()*0.3
	longitude := 113.2 + rand.Float64()*0.4

	return &domain.Site{
		Name:            siteNameParts[rand.Intn(len(siteNameParts))] + siteNameSuffixes[rand.Intn(len(siteNameSuffixes))] + GenerateRandomPassword(4),
		Address:         "广州市" + siteNameParts[rand.Intn(len(siteNameParts))] + "区某路某号",
		Latitude:        &latitude,
		Longitude:       &longitude,
		ServiceLevel:    int32(rand.Intn(5) + 1),
		RiskLevel:       int32(rand.Intn(5) + 1),
		SkillsMandatory: rand.Intn(4) == 0,
	}
}

// GenerateRandomShift 为指定站点生成一个随机待派班次
func GenerateRandomShift(siteID int64) *domain.Shift {
	start, end := RandomShiftWindow(7)

	skillCount := rand.Intn(3)
	skills := make([]string, 0, skillCount)
	seen := make(map[string]bool)
	for len(skills) < skillCount {
		skill := SkillPool[rand.Intn(len(SkillPool))]
		if seen[skill] {
			continue
		}
		seen[skill] = true
		skills = append(skills, skill)
	}

	return &domain.Shift{
		SiteID:         siteID,
		ShiftType:      RandomShiftType(start),
		StartTime:      start,
		EndTime:        end,
		RequiredSkills: skills,
		Status:         domain.ShiftStatusOpen,
		IsUrgent:       rand.Intn(5) == 0,
		HourlyBudget:   20 + rand.Float64()*20,
	}
}

func GenerateRandomOTP() string {
	otp := ""
	for i := 0; i < 6; i++ {
		otp += string(digits[rand.Intn(len(digits))])
	}
	return otp
}

func GenerateRandomPassword(length int) string {
	const characters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	password := ""
	for i := 0; i < length; i++ {
		password += string(characters[rand.Intn(len(characters))])
	}
	return password
}

// RandomShiftWindow 生成未来 daysAhead 天内的一个随机班次时间段
func RandomShiftWindow(daysAhead int) (time.Time, time.Time) {
	start := time.Now().
		AddDate(0, 0, rand.Intn(daysAhead)+1).
		Truncate(time.Hour).
		Add(time.Duration(6+rand.Intn(14)) * time.Hour)
	end := start.Add(time.Duration(4+rand.Intn(8)) * time.Hour)
	return start, end
}

// RandomShiftType 按时间段给出班次类型
func RandomShiftType(start time.Time) string {
	if start.Hour() >= 18 || start.Hour() < 6 {
		return "night"
	}
	return "day"
}
