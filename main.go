package main

import (
	"github.com/dockhand-cd/dockhand/cmd/root"
)

func main() {
	root.Execute()
}
