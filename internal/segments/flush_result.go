// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package segments

import "fmt"

// FlushResult aggregates the outcome of one Flush invocation.
type FlushResult struct {
	// FlushedBytes is the number of append bytes written to storage.
	FlushedBytes int64
	// MergedBytes is the number of bytes a merged child contributed.
	MergedBytes int64
}

// IsEmpty reports whether the flush performed no storage work.
func (r FlushResult) IsEmpty() bool {
	return r.FlushedBytes == 0 && r.MergedBytes == 0
}

func (r FlushResult) String() string {
	return fmt.Sprintf("FlushResult{flushed=%d, merged=%d}", r.FlushedBytes, r.MergedBytes)
}
