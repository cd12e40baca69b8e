// SPDX-License-Identifier: MPL-2.0

// tsmirror mirrors a TypeScript-style source tree into an output directory
// of directly loadable modules, optionally keeping the two in sync through
// filesystem watching while supervising an external declaration generator.
package main

func main() {
	Execute()
}
