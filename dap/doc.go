// Package dap implements the ARM Debug Interface (ADIv5) transfer engine:
// turning read/write DAP register requests into SWD or JTAG bit sequences,
// retrying on WAIT, recovering from sticky faults, and returning results to
// the caller.
//
// See https://developer.arm.com/documentation/ihi0031 for the ADIv5
// specification this package implements against.
package dap
