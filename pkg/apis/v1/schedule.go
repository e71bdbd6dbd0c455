/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package v1

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/awslabs/operatorpkg/serrors"
	"github.com/imdario/mergo"
	"github.com/pelletier/go-toml/v2"
	"sigs.k8s.io/yaml"
)

// Schedule lists the services that a long running controller scales on every tick. Fields left empty on a
// service are taken from Defaults.
type Schedule struct {
	Defaults Event   `json:"defaults"`
	Services []Event `json:"services"`
}

// LoadSchedule reads a schedule from disk. The format is chosen from the file extension: .toml files are
// parsed as TOML and everything else as YAML, which includes JSON.
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schedule, %w", err)
	}
	return ParseSchedule(data, filepath.Ext(path))
}

func ParseSchedule(data []byte, ext string) (*Schedule, error) {
	schedule := &Schedule{}
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		// TOML is normalized to JSON so that the string-or-number fields decode the same way in every format
		var raw map[string]any
		if err := toml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parsing toml schedule, %w", err)
		}
		normalized, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("normalizing toml schedule, %w", err)
		}
		if err := json.Unmarshal(normalized, schedule); err != nil {
			return nil, fmt.Errorf("decoding toml schedule, %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, schedule); err != nil {
			return nil, fmt.Errorf("parsing schedule, %w", err)
		}
	}
	return schedule, nil
}

// Events resolves every scheduled service against the defaults. Services are validated up front so that a
// broken schedule fails at startup rather than on every tick. Two services may not share a cooldown record,
// since their cycles run concurrently. Unless records are scoped by cluster, that rules out services with the
// same name in different clusters.
func (s *Schedule) Events(scopeByCluster bool) ([]Event, error) {
	if len(s.Services) == 0 {
		return nil, fmt.Errorf("schedule does not contain any services")
	}
	seen := map[string]ServiceKey{}
	events := make([]Event, 0, len(s.Services))
	for i := range s.Services {
		event := s.Services[i]
		if err := mergo.Merge(&event, s.Defaults); err != nil {
			return nil, fmt.Errorf("merging defaults into service %d, %w", i, err)
		}
		if _, err := event.Policy(0); err != nil {
			return nil, fmt.Errorf("validating service %d (%s), %w", i, event.ServiceKey(), err)
		}
		key := event.ServiceKey()
		objectKey := key.CooldownObjectKey(scopeByCluster)
		if other, ok := seen[objectKey]; ok {
			if other == key {
				return nil, fmt.Errorf("service %s is scheduled more than once", key)
			}
			return nil, serrors.Wrap(fmt.Errorf("services %s and %s share a cooldown record, enable cooldown-scope-by-cluster", other, key), "object-key", objectKey)
		}
		seen[objectKey] = key
		events = append(events, event)
	}
	return events, nil
}
