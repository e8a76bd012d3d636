package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/couchcryptid/quake-felt-service/internal/estimator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Single(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-shaking", "5", "-duration", "4", "-objects", "5", "-reaction", "5", "-damage", "5"}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	fields := strings.Fields(lines[1])
	require.Len(t, fields, 8)
	assert.Equal(t, []string{"5", "4", "5", "5", "5", "-", "4.6"}, fields[:7])
}

func TestRun_Table(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-table"}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, len(estimator.TrainingSet)+1)
	assert.Contains(t, lines[0], "REGRESSION")
}

func TestRun_OutOfRange(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"-shaking", "7"}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shaking")
}
