package main

import (
	"os"

	"github.com/equitrack/partnership-api/actions"
	"github.com/equitrack/partnership-api/log"
)

// main is the starting point for your Buffalo application.
// You can feel free and add to this `main` method, change
// what it does, etc...
// All we ask is that, at some point, you make sure to
// call `app.Serve()`, unless you don't want to start your
// application that is. :)
func main() {
	app := actions.App()
	if err := app.Serve(); err != nil {
		if err.Error() != "context canceled" {
			log.Fatalf("failed to start the service, %s", err)
		}
		os.Exit(0)
	}
}
