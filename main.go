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

package main

import (
	"fmt"

	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/alibaba/opensandbox/procmon/pkg/flag"
	"github.com/alibaba/opensandbox/procmon/pkg/log"
	"github.com/alibaba/opensandbox/procmon/pkg/web"
	"github.com/alibaba/opensandbox/procmon/pkg/web/controller"
)

// main initializes and starts the procmon server.
func main() {
	flag.InitFlags()

	log.SetLevel(flag.ServerLogLevel)
	defer log.Sync()

	controller.InitHostProcessMonitor(flag.StreamInterval)
	engine := web.NewRouter(flag.ServerAccessToken)
	addr := fmt.Sprintf(":%d", flag.ServerPort)
	log.Info("procmon listening on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Error("failed to start procmon server: %v", err)
	}
}
