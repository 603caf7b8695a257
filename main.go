package main

import (
	"github.com/revisely/revisely/cmd"
	"github.com/revisely/revisely/internal/logging"
	"github.com/revisely/revisely/internal/status"
)

func main() {
	defer logging.RecoverPanic("main", func() {
		status.Error("Application terminated due to unhandled panic")
	})

	cmd.Execute()
}
