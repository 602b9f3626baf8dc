// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

package appconsts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppConsts(t *testing.T) {
	assert.NotEmpty(t, Name)
	assert.NotEmpty(t, Version)
}
