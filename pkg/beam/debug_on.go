//go:build beamdebug

package beam

// debug enables invariant checks in Assemble. Build with -tags beamdebug.
const debug = true
