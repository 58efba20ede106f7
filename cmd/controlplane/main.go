// Command controlplane runs the uptime monitoring control plane.
package main

import "github.com/watchtower/controlplane/internal/cli"

func main() {
	cli.Execute()
}
