package main

import (
	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{Use: "shopchat"}

	root.AddCommand(serveCMD(), migrateCMD(), reevaluateCMD())
	_ = root.Execute()
}
