// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads the remote cluster's credentials and timeout
// from the process environment, with an optional YAML file as a
// lower-precedence overlay.
package config

import (
	"os"
	"strconv"
	"time"

	"sigs.k8s.io/yaml"
)

// Cluster holds the remote cluster fetcher's connection parameters.
type Cluster struct {
	User              string        `json:"user"`
	Password          string        `json:"password"`
	ConnectionTimeout time.Duration `json:"connectionTimeout"`
}

const (
	envUser     = "USER"
	envPassword = "PASSWORD"
	envTimeout  = "CONNECTION_TIMEOUT"

	// ConfigFileEnv names an optional environment variable pointing at
	// a YAML overlay file; environment variables always win over it.
	ConfigFileEnv = "TEMPOLAKE_CONFIG"
)

type overlay struct {
	User              string `json:"user"`
	Password          string `json:"password"`
	ConnectionTimeout *int   `json:"connectionTimeout"`
}

// ClusterEnv reads USER, PASSWORD and CONNECTION_TIMEOUT from the
// process environment, defaulting to "default", "" and 30 seconds
// respectively. If TEMPOLAKE_CONFIG names a readable YAML file, its
// values fill in fields the environment left at their default.
func ClusterEnv() Cluster {
	c := Cluster{
		User:              "default",
		Password:          "",
		ConnectionTimeout: 30 * time.Second,
	}

	var ov overlay
	haveOverlay := false
	if path := os.Getenv(ConfigFileEnv); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if yaml.Unmarshal(data, &ov) == nil {
				haveOverlay = true
			}
		}
	}

	if v, ok := os.LookupEnv(envUser); ok {
		c.User = v
	} else if haveOverlay && ov.User != "" {
		c.User = ov.User
	}

	if v, ok := os.LookupEnv(envPassword); ok {
		c.Password = v
	} else if haveOverlay && ov.Password != "" {
		c.Password = ov.Password
	}

	if v, ok := os.LookupEnv(envTimeout); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.ConnectionTimeout = time.Duration(n) * time.Second
		}
	} else if haveOverlay && ov.ConnectionTimeout != nil {
		c.ConnectionTimeout = time.Duration(*ov.ConnectionTimeout) * time.Second
	}

	return c
}
