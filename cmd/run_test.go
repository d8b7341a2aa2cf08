package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-enrichment/internal/model"
)

func TestParseLeadsCSV(t *testing.T) {
	input := `name,email,company,domain,industry
Jane Doe,jane@acme.com,Acme Corp,acme.com,Technology
John Roe,john@globex.com,,,
,skip-me,,,`

	// The third row has an email, the blank-email case is below.
	leads, err := parseLeadsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, leads, 3)

	assert.Equal(t, model.Lead{
		Name:         "Jane Doe",
		Email:        "jane@acme.com",
		Company:      "Acme Corp",
		Domain:       "acme.com",
		IndustryHint: "Technology",
	}, leads[0])
	assert.Equal(t, "john@globex.com", leads[1].Email)
	assert.Empty(t, leads[1].Company)
}

func TestParseLeadsCSV_ColumnOrderAndCase(t *testing.T) {
	input := `EMAIL,Name
jane@acme.com,Jane`

	leads, err := parseLeadsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "jane@acme.com", leads[0].Email)
	assert.Equal(t, "Jane", leads[0].Name)
}

func TestParseLeadsCSV_SkipsRowsWithoutEmail(t *testing.T) {
	input := `name,email
Jane,jane@acme.com
NoEmail,`

	leads, err := parseLeadsCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, leads, 1)
}

func TestParseLeadsCSV_MissingEmailColumn(t *testing.T) {
	input := `name,company
Jane,Acme`

	_, err := parseLeadsCSV(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email column")
}

func TestParseLeadsCSV_EmptyInput(t *testing.T) {
	_, err := parseLeadsCSV(strings.NewReader(""))
	assert.Error(t, err)
}
