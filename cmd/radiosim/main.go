// Command radiosim runs a discrete-event radio-resource allocation
// simulation from a declarative scenario file.
package main

import "github.com/dgwcamk/radiosim/cmd/radiosim/commands"

func main() {
	commands.Execute()
}
