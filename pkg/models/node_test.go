package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestNodeLoadApplyMergesOnlySetFields(t *testing.T) {
	load := NewNodeLoad("qnet-node-1")
	load.CPUUtilization = 40
	load.MemoryUtilization = 55
	load.ActiveConnections = 12
	before := load.LastUpdated

	load.Apply(NodeLoadUpdate{
		CPUUtilization: floatPtr(70),
		QueuedTasks:    intPtr(3),
	})

	assert.Equal(t, 70.0, load.CPUUtilization)
	assert.Equal(t, 55.0, load.MemoryUtilization)
	assert.Equal(t, 12, load.ActiveConnections)
	assert.Equal(t, 3, load.QueuedTasks)
	assert.False(t, load.LastUpdated.Before(before))
}

func TestCompositeLoad(t *testing.T) {
	tests := []struct {
		name string
		load NodeLoad
		want float64
	}{
		{"idle node", NodeLoad{}, 0},
		{
			name: "cpu and memory only",
			load: NodeLoad{CPUUtilization: 50, MemoryUtilization: 50},
			want: 35,
		},
		{
			name: "queue pressure caps at 100",
			load: NodeLoad{QueuedTasks: 500},
			want: 10,
		},
		{
			name: "fully saturated clamps to 100",
			load: NodeLoad{
				CPUUtilization:     100,
				MemoryUtilization:  100,
				NetworkUtilization: 100,
				DiskUtilization:    100,
				QueuedTasks:        100,
			},
			want: 100,
		},
		{
			name: "mixed resources",
			load: NodeLoad{
				CPUUtilization:     80,
				MemoryUtilization:  60,
				NetworkUtilization: 40,
				DiskUtilization:    20,
				QueuedTasks:        4,
			},
			want: 0.4*80 + 0.3*60 + 0.1*40 + 0.1*20 + 0.1*20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.load.CompositeLoad(), 0.001)
		})
	}
}

func TestNodePoolSizeChecks(t *testing.T) {
	pool := NodePool{MinSize: 1, MaxSize: 3, CurrentSize: 2, Nodes: []string{"a", "b"}}

	assert.True(t, pool.HasCapacity())
	assert.True(t, pool.AboveMinimum())
	assert.True(t, pool.SizeInvariantHolds())
	assert.True(t, pool.ContainsNode("a"))
	assert.False(t, pool.ContainsNode("c"))

	pool.CurrentSize = 3
	assert.False(t, pool.HasCapacity())
	assert.True(t, pool.SizeInvariantHolds())

	pool.CurrentSize = 4
	assert.False(t, pool.SizeInvariantHolds())

	pool.CurrentSize = 1
	assert.False(t, pool.AboveMinimum())
}

func TestComparisonEvaluate(t *testing.T) {
	tests := []struct {
		comparison Comparison
		observed   float64
		threshold  float64
		want       bool
	}{
		{CompareGreater, 81, 80, true},
		{CompareGreater, 80, 80, false},
		{CompareGreaterEqual, 80, 80, true},
		{CompareLess, 19, 20, true},
		{CompareLess, 20, 20, false},
		{CompareLessEqual, 20, 20, true},
		{Comparison("ne"), 1, 2, false},
	}

	for _, tt := range tests {
		got := tt.comparison.Evaluate(tt.observed, tt.threshold)
		assert.Equal(t, tt.want, got, "%s(%v, %v)", tt.comparison, tt.observed, tt.threshold)
	}
}
