// SPDX-License-Identifier: MPL-2.0

package hostexec

import "os"

// processEnviron is a seam over os.Environ for tests that need a
// deterministic base environment.
var processEnviron = os.Environ
