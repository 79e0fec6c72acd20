// Command ecufw is the scheduler firmware simulator and bench tool for a
// single-cylinder GX35-class engine ECU.
package main

import "github.com/kbuckham/gx35ecu/internal/cli"

func main() {
	cli.Execute()
}
