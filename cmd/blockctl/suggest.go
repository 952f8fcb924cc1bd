package main

import (
	"github.com/spf13/cobra"

	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/loader"
)

var blockFile string

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest splits or conversions for a block",
}

var suggestSplitCmd = &cobra.Command{
	Use:   "split",
	Short: "Rank the split strategies that apply to a block",
	Args:  cobra.NoArgs,
	RunE:  runSuggestSplit,
}

var suggestConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Rank the types a block can be converted to",
	Args:  cobra.NoArgs,
	RunE:  runSuggestConvert,
}

func init() {
	suggestCmd.PersistentFlags().StringVarP(&blockFile, "file", "f", "", "Block file (YAML or JSON)")
	_ = suggestCmd.MarkPersistentFlagRequired("file")

	suggestCmd.AddCommand(suggestSplitCmd)
	suggestCmd.AddCommand(suggestConvertCmd)
	rootCmd.AddCommand(suggestCmd)
}

func readSuggestionBlock() (*domain.Block, error) {
	block, err := loader.ReadBlock(blockFile)
	if err != nil {
		return nil, err
	}
	if err := domain.NewValidator().ValidateBlock(block); err != nil {
		return nil, err
	}
	return block, nil
}

func runSuggestSplit(cmd *cobra.Command, args []string) error {
	block, err := readSuggestionBlock()
	if err != nil {
		return err
	}
	disabled, err := loadDisabled()
	if err != nil {
		return err
	}
	return encode(cmd, newEngine(disabled.Names()).SuggestSplits(*block))
}

func runSuggestConvert(cmd *cobra.Command, args []string) error {
	block, err := readSuggestionBlock()
	if err != nil {
		return err
	}
	disabled, err := loadDisabled()
	if err != nil {
		return err
	}
	return encode(cmd, newEngine(disabled.Names()).SuggestConversions(*block))
}
