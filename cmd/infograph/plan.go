package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/avi3tal/infograph/internal/decompose"
	"github.com/avi3tal/infograph/internal/graph"
)

var planLenient bool

var planCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Validate a graph file and print its stages",
	Long: `Load an execution graph from a YAML or JSON file, validate it the way the
coordinator would, and print its stages and data dependencies.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := decompose.LoadFile(args[0])
		if err != nil {
			return err
		}

		var opts []graph.Option
		if planLenient || cfg.Decomposition.LenientReferences {
			opts = append(opts, graph.WithLenientReferences())
		}
		plan, err := graph.Compile(g, opts...)
		if err != nil {
			printStatus("✗", err.Error(), color.FgRed)
			return err
		}

		printStatus("✓", fmt.Sprintf("%d nodes in %d stages", plan.Len(), len(plan.Stages())), color.FgGreen)
		for _, w := range plan.Warnings() {
			printStatus("!", w.Error(), color.FgYellow)
		}
		fmt.Println()
		return plan.Describe(os.Stdout)
	},
}

func init() {
	planCmd.Flags().BoolVar(&planLenient, "lenient", false, "Accept references to nodes that do not run earlier")
}

// printStatus prints a status line with color
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}
