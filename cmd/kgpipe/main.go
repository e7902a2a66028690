package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "kgpipe",
		Short: "Consolidate and evaluate ontology-guided knowledge graphs",
		Long: `kgpipe merges generated ontology batches into one entity hierarchy,
consolidates per-article graph fragments under it, and evaluates the result.

Batches and results live under <data-dir>/<model>/.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().String("config", "config/config.toml", "Path to the TOML config file")
	rootCmd.PersistentFlags().String("data-dir", "", "Artifact root directory (overrides config)")
	rootCmd.PersistentFlags().String("model", "", "Generator model name, the artifact subdirectory (overrides config)")
	rootCmd.PersistentFlags().Bool("json", false, "Print machine-readable output")

	addCmd := &cobra.Command{
		Use:   "add <ontology|kg> <file>...",
		Short: "Store batch files under the model's batch directory",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runAdd,
	}

	ontologyCmd := &cobra.Command{
		Use:   "ontology",
		Short: "Build the final ontology from the stored ontology batches",
		RunE:  runOntology,
	}

	graphCmd := &cobra.Command{
		Use:   "graph",
		Short: "Consolidate the stored graph batches under the final ontology",
		RunE:  runGraph,
	}

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compute structural metrics and, optionally, accuracy of the final graph",
		RunE:  runEvaluate,
	}
	evaluateCmd.Flags().Bool("accuracy", false, "Resolve nodes against the configured reference knowledge base")
	evaluateCmd.Flags().String("gold", "", "JSON file of gold triples to score the graph's triples against")
	evaluateCmd.Flags().String("compare", "", "Another graph file to count verbatim shared triples with")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the final graph to Memgraph",
		RunE:  runExport,
	}
	exportCmd.Flags().String("graph-id", "", "Graph id in the store (default: model name)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run every stage: ontology, graph, evaluation and export",
		RunE:  runAll,
	}

	importCmd := &cobra.Command{
		Use:   "import-kb <triples.json>",
		Short: "Load reference triples into the SQLite knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportKB,
	}

	checkpointsCmd := &cobra.Command{
		Use:   "checkpoints",
		Short: "List accuracy evaluation checkpoints",
		RunE:  runCheckpoints,
	}
	checkpointsCmd.Flags().String("clear", "", "Delete the checkpoints of this run id")

	rootCmd.AddCommand(addCmd, ontologyCmd, graphCmd, evaluateCmd, exportCmd, runCmd, importCmd, checkpointsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
