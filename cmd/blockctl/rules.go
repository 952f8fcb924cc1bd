package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/freewebtopdf/block-engine/internal/conflict"
	"github.com/freewebtopdf/block-engine/internal/converter"
	"github.com/freewebtopdf/block-engine/internal/domain"
	"github.com/freewebtopdf/block-engine/internal/merger"
)

var disableReason string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rule tables with their analysis",
	Long: `List the merge and convert tables in resolution order, flagging duplicate
names, shadowed rules and strategies no engine implements. Disabled rules are
listed but excluded from the analysis.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable [rule-name]",
	Short: "Disable a rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesDisable,
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable [rule-name]",
	Short: "Enable a disabled rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRulesEnable,
}

// rulesOutput is what rules prints
type rulesOutput struct {
	Tables   []conflict.Report        `json:"tables" yaml:"tables"`
	Disabled []conflict.DisabledEntry `json:"disabled" yaml:"disabled"`
}

func init() {
	rulesDisableCmd.Flags().StringVarP(&disableReason, "reason", "r", "", "Why the rule is disabled")

	rulesCmd.AddCommand(rulesDisableCmd)
	rulesCmd.AddCommand(rulesEnableCmd)
	rootCmd.AddCommand(rulesCmd)
}

func runRules(cmd *cobra.Command, args []string) error {
	disabled, err := loadDisabled()
	if err != nil {
		return err
	}
	return encode(cmd, rulesOutput{
		Tables:   newEngine(disabled.Names()).AnalyzeRules(),
		Disabled: disabled.Entries(),
	})
}

// tableOf names the table a rule belongs to, or "" for an unknown rule
func tableOf(name string) string {
	hasName := func(r domain.Rule) bool { return r.Name == name }
	switch {
	case slices.ContainsFunc(merger.DefaultRules(), hasName):
		return conflict.TableMerge
	case slices.ContainsFunc(converter.DefaultRules(), hasName):
		return conflict.TableConvert
	}
	return ""
}

func runRulesDisable(cmd *cobra.Command, args []string) error {
	name := args[0]
	table := tableOf(name)
	if table == "" {
		return fmt.Errorf("unknown rule %q", name)
	}

	disabled, err := loadDisabled()
	if err != nil {
		return err
	}
	if err := disabled.Disable(name, table, disableReason); err != nil {
		return err
	}
	cmd.Printf("Disabled %s rule %s\n", table, name)
	return nil
}

func runRulesEnable(cmd *cobra.Command, args []string) error {
	name := args[0]

	disabled, err := loadDisabled()
	if err != nil {
		return err
	}
	if !disabled.IsDisabled(name) {
		return fmt.Errorf("rule %q is not disabled", name)
	}
	if err := disabled.Enable(name); err != nil {
		return err
	}
	cmd.Printf("Enabled %s\n", name)
	return nil
}
