package main

import (
	"hltvstats-backend/cmd/hltvstats-cli/commands"
	"hltvstats-backend/lib/util/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
