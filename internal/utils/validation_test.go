package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateShiftWindow(t *testing.T) {
	start := time.Now().Add(24 * time.Hour)

	assert.NoError(t, ValidateShiftWindow(start, start.Add(8*time.Hour)))
	assert.Error(t, ValidateShiftWindow(start, start))
	assert.Error(t, ValidateShiftWindow(start, start.Add(-time.Hour)))
	assert.Error(t, ValidateShiftWindow(start, start.Add(25*time.Hour)))
}

func TestGenerateRandomWorker(t *testing.T) {
	worker, err := GenerateRandomWorker("password123", "example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, worker.Username)
	assert.NotEmpty(t, worker.FullName)
	assert.Contains(t, worker.Email, "@example.com")
	assert.NotEmpty(t, worker.PasswordHash)
	assert.NotEqual(t, "password123", worker.PasswordHash)
	assert.NotEmpty(t, worker.Skills)
	assert.Greater(t, worker.HourlyRate, 0.0)
	require.NotNil(t, worker.HomeLatitude)
	require.NotNil(t, worker.HomeLongitude)
	for _, day := range worker.PreferredDays {
		assert.GreaterOrEqual(t, day, int32(1))
		assert.LessOrEqual(t, day, int32(7))
	}
}

func TestGenerateRandomOTP(t *testing.T) {
	otp := GenerateRandomOTP()
	assert.Len(t, otp, 6)
	for _, c := range otp {
		assert.True(t, c >= '0' && c <= '9')
	}
}

func TestRandomShiftWindow(t *testing.T) {
	start, end := RandomShiftWindow(7)
	assert.True(t, start.After(time.Now()))
	assert.True(t, end.After(start))
	assert.LessOrEqual(t, end.Sub(start).Hours(), 12.0)
}
