package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/loader"
	"github.com/freewebtopdf/block-engine/internal/storage"
)

var (
	requestsFile string
	documentFile string
	writeBack    bool
	keepGoing    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute interaction requests",
	Long: `Execute every request of a YAML or JSON file in order.

With --document, the changes of each successful request are applied to the
document and the final document is printed after the results. Requests name
their blocks inline, so each request should carry the snapshots it acts on.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

// runOutput is what run prints
type runOutput struct {
	Results  []domain.InteractionResult `json:"results" yaml:"results"`
	Document *domain.Document           `json:"document,omitempty" yaml:"document,omitempty"`
}

func init() {
	runCmd.Flags().StringVarP(&requestsFile, "file", "f", "", "Request file (YAML or JSON)")
	runCmd.Flags().StringVarP(&documentFile, "document", "d", "", "Document file the changes are applied to")
	runCmd.Flags().BoolVarP(&writeBack, "write", "w", false, "Write the updated document back to its file")
	runCmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Continue after a failed request")
	_ = runCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if writeBack && documentFile == "" {
		return errors.New("--write needs --document")
	}

	requests, err := loader.ReadRequests(requestsFile)
	if err != nil {
		return err
	}

	var doc *domain.Document
	if documentFile != "" {
		if doc, err = loader.ReadDocument(documentFile); err != nil {
			return err
		}
	}

	disabled, err := loadDisabled()
	if err != nil {
		return err
	}
	engine := newEngine(disabled.Names())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := runOutput{Results: make([]domain.InteractionResult, 0, len(requests)), Document: doc}
	var failed int
	for i, req := range requests {
		result := engine.ExecuteInteraction(ctx, req)
		out.Results = append(out.Results, result)

		if result.Result != domain.ResultSuccess {
			failed++
			log.Warn().Int("request", i).Str("type", string(req.Type)).Str("error", result.Error).Msg("Request failed")
			if !keepGoing {
				break
			}
			continue
		}
		if doc != nil {
			if err := storage.ApplyChanges(doc, result.Changes); err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
		}
	}

	if writeBack {
		if err := loader.NewWriter("").WriteDocumentToPath(doc, documentFile); err != nil {
			return err
		}
	}

	if err := encode(cmd, out); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(requests))
	}
	return nil
}
