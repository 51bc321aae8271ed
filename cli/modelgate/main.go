package main

import (
	"os"

	modelgatecmder "github.com/papercomputeco/modelgate/cmd/modelgate"
)

func main() {
	cmd := modelgatecmder.NewModelgateCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
