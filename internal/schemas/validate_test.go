package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentsSchema_IsValidJSON(t *testing.T) {
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(AssignmentsSchema()), &v))
	assert.Equal(t, "object", v["type"])
}

func TestValidateAssignmentsFile_Valid(t *testing.T) {
	err := ValidateAssignmentsFile(filepath.Join("testdata", "valid_assignments.json"))
	assert.NoError(t, err)
}

func TestValidateAssignmentsFile_Invalid(t *testing.T) {
	err := ValidateAssignmentsFile(filepath.Join("testdata", "invalid_assignments.json"))
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")

	var joined []string
	for _, fe := range validationErr.Errors {
		joined = append(joined, fe.Field)
	}
	all := strings.Join(joined, " ")
	assert.Contains(t, all, "requirements")
	assert.Contains(t, all, "datasets.0.format")
	assert.Contains(t, all, "datasets.0.records")
	assert.Contains(t, err.Error(), "mission")
}

func TestValidateAssignmentsFile_NotFound(t *testing.T) {
	err := ValidateAssignmentsFile(filepath.Join("testdata", "nonexistent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestValidateAssignments_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()
	malformed := filepath.Join(tmpDir, "assignments.json")
	require.NoError(t, os.WriteFile(malformed, []byte("{ invalid json }"), 0644))

	err := ValidateAssignmentsFile(malformed)
	require.Error(t, err)
	_, isValidation := err.(*ValidationError)
	assert.False(t, isValidation, "a parse failure is not a field-level validation error")
}

func TestValidateAssignments_EmptyAssignments(t *testing.T) {
	err := ValidateAssignments(`{"company":"Acme","job_role":"x","job_level":"Mid","assignments":[]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assignments")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{
		Errors: []FieldError{
			{Field: "name", Message: "is required"},
			{Field: "age", Message: "must be a number"},
		},
	}

	errorMsg := err.Error()
	assert.Contains(t, errorMsg, "validation failed")
	assert.Contains(t, errorMsg, "name")
	assert.Contains(t, errorMsg, "age")
}

func TestValidateAssignments_NestedFieldPath(t *testing.T) {
	data, err := os.ReadFile(filepath.Join("testdata", "valid_assignments.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	first := doc["assignments"].([]any)[0].(map[string]any)
	delete(first["starter_code"].(map[string]any), "filename")
	first["requirements"] = []any{}
	broken, err := json.Marshal(doc)
	require.NoError(t, err)

	err = ValidateAssignments(string(broken))
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok)
	var fields []string
	for _, fe := range validationErr.Errors {
		fields = append(fields, fe.Field)
	}
	all := strings.Join(fields, " ")
	assert.Contains(t, all, "assignments.0.starter_code")
	assert.Contains(t, all, "assignments.0.requirements")
}
