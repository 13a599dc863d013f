package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRegistry(t *testing.T) {
	for _, stepName := range Order {
		def, ok := StepRegistry[stepName]
		require.True(t, ok, "Step %s should be in registry", stepName)
		assert.Equal(t, stepName, def.Name)
		assert.NotEmpty(t, def.Category)
	}
	assert.Len(t, StepRegistry, len(Order))
}

func TestStepRegistryDependenciesPrecedeDependents(t *testing.T) {
	position := make(map[string]int)
	for i, name := range Order {
		position[name] = i
	}
	for name, def := range StepRegistry {
		for _, dep := range append(append([]string{}, def.Dependencies...), def.Optional...) {
			assert.Less(t, position[dep], position[name], "%s must run before %s", dep, name)
		}
	}
}

func TestDependencyError(t *testing.T) {
	err := &DependencyError{
		Step:                "datasets",
		MissingDependencies: []string{"assignments"},
	}

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "depends on skipped steps: assignments")
	assert.Equal(t, "datasets", err.Step)
}

func TestValidateDependencies_UnknownStep(t *testing.T) {
	err := ValidateDependencies("unknown_step", nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown step")
}

func TestValidatePlan(t *testing.T) {
	all := func(except ...string) map[string]bool {
		m := map[string]bool{Research: true, Assignments: true, Datasets: true, StarterCode: true, Portal: true}
		for _, e := range except {
			delete(m, e)
		}
		return m
	}

	tests := []struct {
		name     string
		enabled  map[string]bool
		reusable map[string]bool
		failStep string
	}{
		{name: "everything enabled", enabled: all()},
		{name: "skip research", enabled: all(Research)},
		{name: "skip assets", enabled: all(Datasets, StarterCode)},
		{name: "skip assignments with downstream", enabled: all(Assignments), failStep: Datasets},
		{name: "skip assignments with reusable output", enabled: all(Assignments), reusable: map[string]bool{Assignments: true}},
		{name: "skip assignments and all downstream", enabled: map[string]bool{Research: true}},
		{name: "design without portal", enabled: map[string]bool{Assignments: true, Design: true}, failStep: Design},
		{name: "design with portal", enabled: map[string]bool{Assignments: true, Portal: true, Design: true}},
		{name: "portal only without assignments", enabled: map[string]bool{Portal: true}, failStep: Portal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlan(tt.enabled, tt.reusable)
			if tt.failStep == "" {
				assert.NoError(t, err)
				return
			}
			var depErr *DependencyError
			require.ErrorAs(t, err, &depErr)
			assert.Equal(t, tt.failStep, depErr.Step)
		})
	}
}

func TestValidatePlan_UnknownStep(t *testing.T) {
	err := ValidatePlan(map[string]bool{"render_latex": true}, nil)
	assert.ErrorContains(t, err, "unknown step: render_latex")
}

func TestEnabledSteps(t *testing.T) {
	got := EnabledSteps(map[string]bool{Portal: true, Research: true, Assignments: true, Datasets: false})
	assert.Equal(t, []string{Research, Assignments, Portal}, got)
}
