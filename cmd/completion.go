package cmd

import (
	"github.com/msalah0e/causa/internal/store"
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
func completionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate completion scripts for your shell.

  # Bash (add to ~/.bashrc)
  eval "$(causa completion bash)"

  # Zsh (add to ~/.zshrc)
  eval "$(causa completion zsh)"

  # Fish
  causa completion fish | source

  # PowerShell
  causa completion powershell | Out-String | Invoke-Expression`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				_ = rootCmd.GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				_ = rootCmd.GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				_ = rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				_ = rootCmd.GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
		},
	}

	return cmd
}

// nodeCompletionFunc completes node ids from the analysis named by --file.
// Backend analyses are not completed.
func nodeCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	a, err := store.Load(path)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var completions []string
	for _, n := range a.Sorted() {
		completions = append(completions, n.ID+"\t"+n.Label())
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
