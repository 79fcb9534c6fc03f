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
Package operation runs one pipeline from start to teardown.

	     +------+
	     | Idle |
	     +--+---+
	        | moveapproved skips the session
	+-------v------+
	| SessionSetup |---- open or chdir failed ----+
	+-------+------+                              |
	        |                                     |
	+-------v--------------------------------+    |
	| Packaging | BatchTransfer | DebugSend  |    |
	+-------+--------------------------------+    |
	        |                                     |
	+-------v---------+                           |
	| SessionTeardown |<--------------------------+
	+-------+---------+
	        |
	     +--v---+
	     | Done |
	     +------+

🎯 Purpose:
- Owns the run: session, ledger entry, job logs, and the program log
- Chooses the pipeline from the action
- Always tears down, whichever branch ran

🤝 Collaborators:
- packager: moveapproved
- transfer: process and send
- lock: the caller must already hold the (action, network) lock

🔍 Example:

	r, err := operation.New(operation.Options{
		RunContext: rc,
		Lock:       handle,
		Session:    sess,
	})
	state := r.Run(ctx)
*/
package operation
