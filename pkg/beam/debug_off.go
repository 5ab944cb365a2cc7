//go:build !beamdebug

package beam

const debug = false
