/*
Copyright © 2025 STARMOUNTAIN1997
*/
package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/starmountain1997/vaops/pkg/config"
	"github.com/starmountain1997/vaops/pkg/script"
	"github.com/starmountain1997/vaops/pkg/writer"
)

// datasetCmd represents the dataset command
var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Generate the GSM8K benchmark dataset preparation script",
	Long: `Generate gsm8k_prep.sh, a self-contained script that builds the
GSM8K-in<len>-bs<batch>.jsonl file used for serving benchmarks.

Tokenization needs the model's tokenizer, so the heavy lifting happens
where Python and modelscope live: the generated script downloads the
tokenizer, stretches each question to the target input length and writes
the batch.`,
	Run: func(cmd *cobra.Command, args []string) {
		inputLen, _ := cmd.Flags().GetInt("input-len")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		modelID, _ := cmd.Flags().GetString("model-id")
		output, _ := cmd.Flags().GetString("output")

		rendered, err := script.RenderDataset(script.DatasetParams{
			InputLen:  inputLen,
			BatchSize: batchSize,
			ModelID:   modelID,
		})
		if err != nil {
			log.Fatalf("Failed to render dataset script: %v", err)
		}

		path, err := writer.Write(rendered, output)
		if err != nil {
			log.Fatalf("Failed to write script: %v", err)
		}

		fmt.Printf("✓ Generated: %s\n", path)
		fmt.Printf("  Dataset: GSM8K-in%d-bs%d.jsonl (tokenizer: %s)\n", inputLen, batchSize, modelID)
		fmt.Println("\nRun it on a machine with Python, modelscope and the gsm8k.zip archive.")
	},
}

func init() {
	rootCmd.AddCommand(datasetCmd)

	datasetCmd.Flags().Int("input-len", config.DefaultDatasetInputLen, "Input token length per sample")
	datasetCmd.Flags().Int("batch-size", config.DefaultDatasetBatchSize, "Number of samples in the dataset")
	datasetCmd.Flags().String("model-id", config.DefaultDatasetModelID, "Model whose tokenizer sizes the samples")
	datasetCmd.Flags().StringP("output", "o", ".", "Output directory")
}
