// Copyright 2025 The blueth Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueth-go/blueth/confengine"
	"github.com/blueth-go/blueth/reactor"
	"github.com/blueth-go/blueth/server"
)

func TestServeConfigYamlUnpacksCleanly(t *testing.T) {
	sc := serveCmdConfig{
		Address:      ":8080",
		Console:      true,
		ConnlogFile:  "blueth.connlog",
		AdminAddress: ":9090",
		AdminPprof:   true,
		IdleTimeout:  90 * time.Second,
	}

	cfg, err := confengine.LoadContent(sc.Yaml())
	require.NoError(t, err)

	var reactorConfig reactor.Config
	require.NoError(t, cfg.UnpackChild("reactor", &reactorConfig))
	assert.Equal(t, ":8080", reactorConfig.Address)
	assert.Equal(t, 90*time.Second, reactorConfig.IdleTTL)

	var serverConfig server.Config
	require.NoError(t, cfg.UnpackChild("server", &serverConfig))
	assert.True(t, serverConfig.Enabled)
	assert.Equal(t, ":9090", serverConfig.Address)
	assert.True(t, serverConfig.Pprof)
}

func TestBadRequestBuildsA400(t *testing.T) {
	assert.Contains(t, badRequest(), "400 Bad Request")
}
