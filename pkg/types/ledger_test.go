package types

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_MarshalJSONFlags(t *testing.T) {
	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	task := Task{
		Key:          "t1",
		RewardAmount: MustParseBigInt("1000000000000000000000"),
		Deadline:     deadline,
		Status:       TaskStatusActive,
	}

	data, err := json.Marshal(task)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["is_active"])
	assert.Equal(t, false, decoded["is_completed"])
	assert.Equal(t, "1000000000000000000000", decoded["reward_amount"])
	assert.Equal(t, "active", decoded["status"])
	assert.NotContains(t, decoded, "disclosed_value")

	v := uint32(42)
	task.Status = TaskStatusCompleted
	task.DisclosedValue = &v
	data, err = json.Marshal(task)
	require.NoError(t, err)
	decoded = nil
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["is_active"])
	assert.Equal(t, true, decoded["is_completed"])
	assert.Equal(t, float64(42), decoded["disclosed_value"])
}

func TestTask_Clone(t *testing.T) {
	v := uint32(7)
	now := time.Now()
	task := Task{RewardAmount: NewBigInt(big.NewInt(5)), DisclosedValue: &v, CompletedAt: &now}

	c := task.Clone()
	c.RewardAmount.SetInt64(9)
	*c.DisclosedValue = 8

	assert.Equal(t, "5", task.RewardAmount.String())
	assert.Equal(t, uint32(7), *task.DisclosedValue)
}

func TestTask_IsExpired(t *testing.T) {
	deadline := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	task := Task{Deadline: deadline}

	assert.False(t, task.IsExpired(deadline))
	assert.True(t, task.IsExpired(deadline.Add(time.Nanosecond)))
}

func TestBigInt_JSON(t *testing.T) {
	tests := []struct {
		name        string
		jsonData    string
		expectError bool
		expected    string
	}{
		{name: "large value", jsonData: `"300749528249665590178224313442040528409305273634097553067152835846309151049"`, expected: "300749528249665590178224313442040528409305273634097553067152835846309151049"},
		{name: "zero", jsonData: `"0"`, expected: "0"},
		{name: "null", jsonData: `null`, expected: "<nil>"},
		{name: "bare number", jsonData: `12`, expectError: true},
		{name: "not a number", jsonData: `"abc"`, expectError: true},
		{name: "empty string", jsonData: `""`, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result BigInt
			err := json.Unmarshal([]byte(tt.jsonData), &result)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.String())
		})
	}
}

func TestNormalizeIdentity(t *testing.T) {
	assert.Equal(t, "0xabcdef", NormalizeIdentity("  0xABCdef "))
}
