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

package model

// ApiAccessTokenHeader carries the shared access token when one is configured.
const ApiAccessTokenHeader = "X-PROCMON-ACCESS-TOKEN"

// ApiAccessTokenQuery is accepted for clients that cannot set headers, such as browser WebSockets.
const ApiAccessTokenQuery = "access_token"

type ErrorCode string

const (
	ErrorCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrorCodeMissingQuery     ErrorCode = "MISSING_QUERY"
	ErrorCodeRuntimeError     ErrorCode = "RUNTIME_ERROR"
	ErrorCodeTerminationError ErrorCode = "TERMINATION_ERROR"
	ErrorCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}
