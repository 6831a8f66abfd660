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

package controller

import (
	"time"

	"github.com/alibaba/opensandbox/procmon/pkg/publisher"
	"github.com/alibaba/opensandbox/procmon/pkg/sampler"
	"github.com/alibaba/opensandbox/procmon/pkg/terminate"
)

var (
	processSampler    publisher.Sampler
	processTerminator terminate.Terminator
	processPublisher  *publisher.Publisher
	factsSource       sampler.FactsSource
)

// InitProcessMonitor wires the sampling pipeline used by every controller.
func InitProcessMonitor(s publisher.Sampler, facts sampler.FactsSource, t terminate.Terminator, interval time.Duration) {
	processSampler = s
	processTerminator = t
	factsSource = facts
	processPublisher = publisher.New(s, t, interval)
}

// InitHostProcessMonitor wires the pipeline to the local operating system.
func InitHostProcessMonitor(interval time.Duration) {
	InitProcessMonitor(sampler.NewHostNormalizer(), sampler.HostFactsSource{}, terminate.NewOSTerminator(), interval)
}
