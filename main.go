// SPDX-License-Identifier: MPL-2.0

package main

import cmd "browserprov/cmd/browserprov"

func main() {
	cmd.Execute()
}
