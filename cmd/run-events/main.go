// Command run-events scrapes running-event listings and serves them over HTTP.
package main

import "github.com/pfrederiksen/run-events/internal/cli"

func main() {
	cli.Execute()
}
