// Command actor runs the animatronic voice actor.
//
// Usage:
//
//	actor [flags] <command> [args]
//
// Commands:
//
//	run     - interactive turn loop: Enter to record, Enter to stop, the actor replies
//	say     - speak one line with mouth animation
//	servo   - move one servo, for wiring checks
//	token   - mint a monitor token for the status server
//	voices  - list ElevenLabs voices
//	version - print the build version
//
// Configuration is read from an optional YAML file (--config) and ACTOR_*
// environment variables. A .env file in the working directory is loaded first.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
