package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnarQorp/qnet-scheduler/pkg/models"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  qnet-node-1  ", "qnet-node-1"},
		{"removes null bytes", "node\x00id", "nodeid"},
		{"strips control characters", "node\x07id", "nodeid"},
		{"keeps newline and tab", "line1\n\tline2", "line1\n\tline2"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeString(tt.input))
		})
	}
}

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		nodeID  string
		wantErr bool
	}{
		{"simple", "qnet-node-1", false},
		{"underscores", "node_42", false},
		{"single character", "a", false},
		{"surrounding whitespace is tolerated", "  qnet-node-1  ", false},
		{"empty", "", true},
		{"leading hyphen", "-node", true},
		{"spaces inside", "node 1", true},
		{"path traversal", "../etc/passwd", true},
		{"too long", strings.Repeat("a", 101), true},
		{"max length", strings.Repeat("a", 100), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeID(tt.nodeID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func validPool() *models.NodePool {
	return &models.NodePool{
		ID:          "pool-1",
		Name:        "compute",
		MinSize:     1,
		MaxSize:     5,
		CurrentSize: 2,
		Nodes:       []string{"qnet-node-1", "qnet-node-2"},
	}
}

func TestValidateNodePool(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.NodePool)
		wantMsg string
	}{
		{
			name:    "nil pool",
			mutate:  nil,
			wantMsg: "cannot be nil",
		},
		{
			name:    "empty name",
			mutate:  func(p *models.NodePool) { p.Name = "   " },
			wantMsg: "name cannot be empty",
		},
		{
			name:    "negative min size",
			mutate:  func(p *models.NodePool) { p.MinSize = -1 },
			wantMsg: "cannot be negative",
		},
		{
			name: "max below min",
			mutate: func(p *models.NodePool) {
				p.MinSize = 5
				p.MaxSize = 2
			},
			wantMsg: "maximum pool size",
		},
		{
			name:    "max too large",
			mutate:  func(p *models.NodePool) { p.MaxSize = 1001 },
			wantMsg: "cannot exceed 1000",
		},
		{
			name: "current size outside bounds",
			mutate: func(p *models.NodePool) {
				p.CurrentSize = 7
				p.Nodes = make([]string, 7)
			},
			wantMsg: "outside bounds",
		},
		{
			name:    "node list size mismatch",
			mutate:  func(p *models.NodePool) { p.CurrentSize = 3 },
			wantMsg: "currentSize",
		},
		{
			name:    "bad node id in list",
			mutate:  func(p *models.NodePool) { p.Nodes[1] = "bad node!" },
			wantMsg: "pool node",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := validPool()
			if tt.mutate == nil {
				pool = nil
			} else {
				tt.mutate(pool)
			}

			err := ValidateNodePool(pool)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	assert.NoError(t, ValidateNodePool(validPool()))
}

func validPolicy() *models.ScalingPolicy {
	return &models.ScalingPolicy{
		ID:      "policy-1",
		Name:    "scale-on-cpu",
		Enabled: true,
		Triggers: []models.ScalingTrigger{
			{
				Metric:     models.MetricCPUUtilization,
				Threshold:  80,
				Comparison: models.CompareGreater,
				Duration:   time.Minute,
				Action:     models.ActionAddNode,
			},
		},
	}
}

func TestValidateScalingPolicy(t *testing.T) {
	t.Run("valid policy passes", func(t *testing.T) {
		assert.NoError(t, ValidateScalingPolicy(validPolicy()))
	})

	t.Run("nil policy", func(t *testing.T) {
		assert.Error(t, ValidateScalingPolicy(nil))
	})

	t.Run("empty name", func(t *testing.T) {
		policy := validPolicy()
		policy.Name = ""
		assert.Error(t, ValidateScalingPolicy(policy))
	})

	t.Run("no triggers", func(t *testing.T) {
		policy := validPolicy()
		policy.Triggers = nil
		err := ValidateScalingPolicy(policy)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one trigger")
	})

	t.Run("negative cooldown", func(t *testing.T) {
		policy := validPolicy()
		policy.Cooldown = -time.Second
		assert.Error(t, ValidateScalingPolicy(policy))
	})

	t.Run("assigns missing trigger ids", func(t *testing.T) {
		policy := validPolicy()
		require.Empty(t, policy.Triggers[0].ID)

		require.NoError(t, ValidateScalingPolicy(policy))
		assert.NotEmpty(t, policy.Triggers[0].ID)
	})

	t.Run("rejects duplicate trigger ids", func(t *testing.T) {
		policy := validPolicy()
		dup := policy.Triggers[0]
		dup.ID = "trig-1"
		policy.Triggers = []models.ScalingTrigger{dup, dup}

		err := ValidateScalingPolicy(policy)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate trigger id")
	})
}

func TestValidateTriggerFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.ScalingTrigger)
		wantMsg string
	}{
		{
			name:    "unknown metric",
			mutate:  func(tr *models.ScalingTrigger) { tr.Metric = "gpu-utilization" },
			wantMsg: "unknown metric",
		},
		{
			name:    "unknown comparison",
			mutate:  func(tr *models.ScalingTrigger) { tr.Comparison = "ne" },
			wantMsg: "unknown comparison",
		},
		{
			name:    "unknown action",
			mutate:  func(tr *models.ScalingTrigger) { tr.Action = "reboot-node" },
			wantMsg: "unknown action",
		},
		{
			name:    "negative duration",
			mutate:  func(tr *models.ScalingTrigger) { tr.Duration = -time.Second },
			wantMsg: "cannot be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := validPolicy()
			tt.mutate(&policy.Triggers[0])

			err := ValidateScalingPolicy(policy)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
