package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// === SimulationKey Tests ===

func TestSimulationKey_Creation(t *testing.T) {
	tests := []struct {
		name string
		seed int64
	}{
		{"positive seed", 42},
		{"zero seed", 0},
		{"negative seed", -1},
		{"max int64", math.MaxInt64},
		{"min int64", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewSimulationKey(tt.seed)
			if int64(key) != tt.seed {
				t.Errorf("NewSimulationKey(%d) = %d, want %d", tt.seed, key, tt.seed)
			}
		})
	}
}

// === PartitionedRNG Tests ===

func TestPartitionedRNG_DeterministicDerivation(t *testing.T) {
	// GIVEN two RNGs built from the same key
	rng1 := NewPartitionedRNG(NewSimulationKey(42))
	rng2 := NewPartitionedRNG(NewSimulationKey(42))

	// WHEN three values are drawn from the same subsystem in each
	for i := 0; i < 3; i++ {
		v1 := rng1.ForSubsystem(SubsystemMobility(3)).Float64()
		v2 := rng2.ForSubsystem(SubsystemMobility(3)).Float64()

		// THEN the sequences are identical
		assert.Equal(t, v1, v2, "value %d", i)
	}
}

func TestPartitionedRNG_SubsystemIsolation(t *testing.T) {
	// GIVEN two RNGs with the same key
	rngA := NewPartitionedRNG(NewSimulationKey(42))
	rngB := NewPartitionedRNG(NewSimulationKey(42))

	// WHEN A draws heavily from the position stream first
	for i := 0; i < 10; i++ {
		rngA.ForSubsystem(SubsystemPosition).Float64()
	}

	// THEN A's mobility stream still starts where B's does
	assert.Equal(t,
		rngB.ForSubsystem(SubsystemMobility(0)).Float64(),
		rngA.ForSubsystem(SubsystemMobility(0)).Float64())
}

func TestPartitionedRNG_DifferentSubsystemsDiffer(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(7))
	a := rng.ForSubsystem(SubsystemMobility(1)).Uint64()
	b := rng.ForSubsystem(SubsystemMobility(2)).Uint64()
	assert.NotEqual(t, a, b)
}

func TestPartitionedRNG_DifferentSeedsDiffer(t *testing.T) {
	a := NewPartitionedRNG(NewSimulationKey(1)).ForSubsystem(SubsystemPosition).Uint64()
	b := NewPartitionedRNG(NewSimulationKey(2)).ForSubsystem(SubsystemPosition).Uint64()
	assert.NotEqual(t, a, b)
}

func TestPartitionedRNG_ForSubsystem_Cached(t *testing.T) {
	rng := NewPartitionedRNG(NewSimulationKey(42))
	assert.Same(t, rng.ForSubsystem("x"), rng.ForSubsystem("x"))
	assert.Equal(t, SimulationKey(42), rng.Key())
}

func TestSubsystemNames(t *testing.T) {
	assert.Equal(t, "mobility_4", SubsystemMobility(4))
	assert.Equal(t, "app_2_onoff", SubsystemApplication(2, "onoff"))
}
