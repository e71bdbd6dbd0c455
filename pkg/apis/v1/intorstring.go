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
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IntOrString holds an integer field of the invocation input. Callers may send the value either as a JSON
// number or as a string, so the raw text is kept and only parsed when the policy is built. An empty value
// means the field was not provided.
type IntOrString struct {
	Raw string
}

func NewIntOrString(i int64) IntOrString {
	return IntOrString{Raw: strconv.FormatInt(i, 10)}
}

func (i IntOrString) IsZero() bool {
	return i.Raw == ""
}

// Int64 parses the raw value. Integral floating point values (e.g. "10.0") are accepted, anything else is an
// error.
func (i IntOrString) Int64() (int64, error) {
	raw := strings.TrimSpace(i.Raw)
	if raw == "" {
		return 0, fmt.Errorf("value is empty")
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return 0, fmt.Errorf("%q is not an integer", i.Raw)
	}
	return int64(f), nil
}

func (i *IntOrString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		i.Raw = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		i.Raw = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected a number or a string, got %s", string(data))
	}
	i.Raw = n.String()
	return nil
}

func (i IntOrString) MarshalJSON() ([]byte, error) {
	if v, err := i.Int64(); err == nil {
		return []byte(strconv.FormatInt(v, 10)), nil
	}
	return json.Marshal(i.Raw)
}

// String and Set let an IntOrString back a command line flag.
func (i *IntOrString) String() string {
	return i.Raw
}

func (i *IntOrString) Set(s string) error {
	i.Raw = s
	return nil
}
