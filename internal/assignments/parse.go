package assignments

import (
	"encoding/json"
	"fmt"

	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/schemas"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// Parse extracts, validates and decodes an assignment set from a raw model response.
// It requires at least count assignments; extras are left for Normalize to truncate.
func Parse(raw string, count int) (*types.AssignmentSet, error) {
	payload := llm.CleanJSONBlock(raw)
	if payload == "" {
		return nil, fmt.Errorf("response contains no JSON")
	}

	if !json.Valid([]byte(payload)) {
		repaired := llm.RepairJSON(payload)
		if !json.Valid([]byte(repaired)) {
			var scratch any
			err := json.Unmarshal([]byte(payload), &scratch)
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		payload = repaired
	}

	if err := schemas.ValidateAssignments(payload); err != nil {
		return nil, err
	}

	var set types.AssignmentSet
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		return nil, fmt.Errorf("failed to decode assignment set: %w", err)
	}

	if len(set.Assignments) < count {
		return nil, &CountError{Want: count, Got: len(set.Assignments)}
	}
	return &set, nil
}
