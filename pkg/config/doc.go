// Copyright 2025 walteh LLC
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

/*
Package config manages configuration parsing and validation for guardxfer.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	     +-------------+-------------+
	     |             |             |
	+----+----+   +----+----+   +----+----+
	|  YAML   |   |   HCL   |   |  JSON   |
	| Parser  |   | Parser  |   | Parser  |
	+---------+   +---------+   +---------+
	                   |
	            +------+------+
	            | RunContext  |
	            | (per run)   |
	            +-------------+

🎯 Purpose:
- Loads the guard configuration from YAML, HCL or JSON
- Rejects structurally invalid files (unknown keys, non-boolean backup)
- Derives a RunContext for one (network, action) pair

🔄 Flow:
1. Load picks a parser by file extension
2. Validate checks required fields and fills defaults
3. NewRunContext resolves per-network directories, checks they exist and are
   read/write accessible, and normalizes them with a trailing separator

All directory problems are reported together in one error so the operator
can fix a config in a single pass.
*/
package config
