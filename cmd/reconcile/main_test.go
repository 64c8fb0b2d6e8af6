package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPassFailures_BothPassesReported(t *testing.T) {
	// GIVEN: One failure in the base pass and another in the allowance pass
	// WHEN: Counting and printing them
	// THEN: Both are counted and each line names its pass

	failures := passFailures{
		{name: "base", errs: []error{errors.New("S2: bad descriptor")}},
		{name: "allowance", errs: []error{errors.New("S3: disk full")}},
	}

	var buf bytes.Buffer
	failures.print(&buf)

	assert.Equal(t, 2, failures.count())
	assert.Equal(t, "base pass: S2: bad descriptor\nallowance pass: S3: disk full\n", buf.String())
}

func TestPassFailures_None(t *testing.T) {
	failures := passFailures{{name: "base"}, {name: "allowance"}}

	var buf bytes.Buffer
	failures.print(&buf)

	assert.Zero(t, failures.count())
	assert.Empty(t, buf.String())
}
