package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCmd(t *testing.T) {
	dir := t.TempDir()
	valid := filepath.Join(dir, "po.yaml")
	require.NoError(t, os.WriteFile(valid, []byte(`flowCode: PO_STD
businessType: purchase_order
nodes:
  - order: 1
    name: Buyer
    assignee: role:buyer
`), 0o644))
	invalid := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte(`flowCode: BROKEN
businessType: purchase_order
nodes:
  - order: 1
    name: Buyer
    assignee: nobody
`), 0o644))

	testCases := []struct {
		description string
		args        []string
		hasError    bool
		expectOut   string
		expectErr   string
	}{
		{description: "valid", args: []string{"validate", valid}, expectOut: "PO_STD v1, purchase_order, 1 nodes"},
		{description: "invalid rule", args: []string{"validate", valid, invalid}, hasError: true, expectOut: "PO_STD", expectErr: "FAIL " + invalid},
		{description: "missing file", args: []string{"validate", filepath.Join(dir, "none.yaml")}, hasError: true, expectErr: "FAIL"},
		{description: "no args", args: []string{"validate"}, hasError: true},
	}
	for _, testCase := range testCases {
		cmd := newRootCmd()
		var stdout, stderr bytes.Buffer
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		cmd.SetArgs(testCase.args)
		err := cmd.Execute()
		if testCase.hasError {
			assert.Error(t, err, testCase.description)
		} else {
			assert.NoError(t, err, testCase.description)
		}
		assert.Contains(t, stdout.String(), testCase.expectOut, testCase.description)
		assert.Contains(t, stderr.String(), testCase.expectErr, testCase.description)
	}
}
