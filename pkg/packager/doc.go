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
Package packager turns approved products in the dissem directory into zip
packages in the review directory.

	dissem/                         review/
	  report.html  ─┐
	  report.xml   ─┤  PackageOne    report.zip
	  sgraphics/…  ─┼─────────────►  ORG-TAPE-brief.pptx
	  attachments/…─┘

Each candidate goes through a fixed sequence:

 1. companion XML must exist, else skip with no side effects
 2. parse metadata
 3. product line must be allowed, else skip with no side effects
 4. register entries and cleanup targets (html, xml, images, media)
 5. zip when the dissem level is allowed and the zip is not fresh
 6. delete every cleanup target

Cleanup runs whether or not the zip gate passed. A failed zip leaves the
inputs in place so the next run can retry.
*/
package packager
