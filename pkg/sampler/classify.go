// Copyright 2025 Alibaba Group Holding Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sampler

import "strings"

// executableSuffix is the Windows executable extension. Process names on
// Linux and macOS rarely carry it, so on those hosts almost every process is
// reported as a background process. The rule is kept as-is because clients
// rely on the classification.
const executableSuffix = ".exe"

var backgroundNameMarkers = []string{"svc", "service", "daemon", "agent", "helper", "system"}

// IsBackgroundProcess guesses from the process name alone whether a process
// runs in the background.
func IsBackgroundProcess(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range backgroundNameMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	if strings.HasPrefix(lower, "com.") {
		return true
	}
	return !strings.HasSuffix(lower, executableSuffix)
}
