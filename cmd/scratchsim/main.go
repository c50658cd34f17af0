// Command scratchsim runs network scenarios on the discrete-event scheduler.
package main

import "github.com/scratchsim/scratchsim/cmd/scratchsim/cmd"

func main() {
	cmd.Execute()
}
