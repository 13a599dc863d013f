// Package steps provides step definitions and dependency validation
// for the take-home generation pipeline.
package steps

import (
	"fmt"
	"sort"
	"strings"
)

// Step names
const (
	Research    = "research"
	Assignments = "assignments"
	Datasets    = "datasets"
	StarterCode = "starter_code"
	Portal      = "portal"
	Design      = "design"
)

// Step categories
const (
	CategoryResearch     = "research"
	CategoryGeneration   = "generation"
	CategoryAssets       = "assets"
	CategoryPresentation = "presentation"
)

// StepDefinition defines metadata for a pipeline step
type StepDefinition struct {
	Name     string
	Category string
	// Dependencies must run (or have reusable output) for this step to run
	Dependencies []string
	// Optional dependencies feed this step when they run but may be skipped
	Optional []string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	Research: {
		Name:         Research,
		Category:     CategoryResearch,
		Dependencies: []string{},
		Optional:     []string{},
	},
	Assignments: {
		Name:         Assignments,
		Category:     CategoryGeneration,
		Dependencies: []string{},
		Optional:     []string{Research},
	},
	Datasets: {
		Name:         Datasets,
		Category:     CategoryAssets,
		Dependencies: []string{Assignments},
		Optional:     []string{},
	},
	StarterCode: {
		Name:         StarterCode,
		Category:     CategoryAssets,
		Dependencies: []string{Assignments},
		Optional:     []string{Datasets},
	},
	Portal: {
		Name:         Portal,
		Category:     CategoryPresentation,
		Dependencies: []string{Assignments},
		Optional:     []string{Research, Datasets, StarterCode},
	},
	Design: {
		Name:         Design,
		Category:     CategoryPresentation,
		Dependencies: []string{Portal},
		Optional:     []string{},
	},
}

// Order is the execution order of the pipeline
var Order = []string{Research, Assignments, Datasets, StarterCode, Portal, Design}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("step %s is enabled but depends on skipped steps: %s", e.Step, strings.Join(e.MissingDependencies, ", "))
}

// ValidateDependencies checks that every required dependency of stepName is satisfied
func ValidateDependencies(stepName string, satisfied map[string]bool) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !satisfied[dep] {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &DependencyError{Step: stepName, MissingDependencies: missing}
	}
	return nil
}

// ValidatePlan checks a whole run plan before anything executes. enabled lists the
// steps that will run; reusable lists skipped steps whose output already exists.
func ValidatePlan(enabled, reusable map[string]bool) error {
	for name := range enabled {
		if _, ok := StepRegistry[name]; !ok {
			return fmt.Errorf("unknown step: %s", name)
		}
	}

	satisfied := make(map[string]bool, len(enabled)+len(reusable))
	for name, on := range enabled {
		satisfied[name] = on
	}
	for name, ok := range reusable {
		if ok {
			satisfied[name] = true
		}
	}

	for _, name := range Order {
		if !enabled[name] {
			continue
		}
		if err := ValidateDependencies(name, satisfied); err != nil {
			return err
		}
	}
	return nil
}

// EnabledSteps returns the enabled step names in execution order
func EnabledSteps(enabled map[string]bool) []string {
	var out []string
	for _, name := range Order {
		if enabled[name] {
			out = append(out, name)
		}
	}
	return out
}

// Names returns all registered step names sorted alphabetically
func Names() []string {
	names := make([]string, 0, len(StepRegistry))
	for name := range StepRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
