package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure chunking, aggregation, source priorities, and
provider options. Settings are stored in ~/.reserca/config.toml.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a setting",
	Long: `Sets a configuration key. Values are parsed as booleans, integers,
or floats when possible, otherwise stored as strings.

Examples:
  reserca settings set chunk.size 300
  reserca settings set priority.websearch 0.4
  reserca settings set embedding.provider ollama`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeyCmd = &cobra.Command{
	Use:   "key [embedding|extractor]",
	Short: "Set a provider API key",
	Long:  `Prompts for an API key without echoing it to the terminal.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsKey,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeyCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settingsSections groups config keys for display.
var settingsSections = []struct {
	name string
	keys []string
}{
	{"Chunking", []string{"chunk.size", "chunk.overlap"}},
	{"Context", []string{"context.budget"}},
	{"Aggregation", []string{
		"aggregate.source_timeout_seconds",
		"aggregate.overall_timeout_seconds",
		"aggregate.per_source_limit",
		"aggregate.local_topk",
		"aggregate.min_results",
	}},
	{"Priorities", []string{
		"priority.local",
		"priority.literature",
		"priority.chemical",
		"priority.websearch",
	}},
	{"Embedding", []string{
		"embedding.provider",
		"embedding.model",
		"embedding.base_url",
		"embedding.api_key",
	}},
	{"Extractor", []string{
		"extractor.model",
		"extractor.base_url",
		"extractor.api_key",
	}},
	{"Sources", []string{"source.crossref.mailto"}},
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Printf("Settings (%s)\n", configStore.Path())
	for _, section := range settingsSections {
		cmd.Printf("\n[%s]\n", section.name)
		for _, key := range section.keys {
			val, ok := configStore.Get(key)
			if !ok {
				continue
			}
			if strings.HasSuffix(key, "api_key") {
				val = maskAPIKey(fmt.Sprint(val))
			}
			cmd.Printf("  %s = %v\n", key, val)
		}
	}
	return nil
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	val, ok := configStore.Get(args[0])
	if !ok {
		return fmt.Errorf("unknown setting: %s", args[0])
	}
	if strings.HasSuffix(args[0], "api_key") {
		val = maskAPIKey(fmt.Sprint(val))
	}
	cmd.Printf("%v\n", val)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]
	if err := configStore.Set(key, parseSettingValue(raw)); err != nil {
		return fmt.Errorf("saving setting: %w", err)
	}
	cmd.Printf("%s = %s\n", key, raw)
	return nil
}

func runSettingsKey(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	provider := args[0]
	if provider != "embedding" && provider != "extractor" {
		return fmt.Errorf("unknown provider: %s", provider)
	}

	cmd.Print("Enter API key: ")
	apiKey := readPassword()
	cmd.Println()
	if apiKey == "" {
		return errors.New("API key must not be empty")
	}

	if err := configStore.Set(provider+".api_key", apiKey); err != nil {
		return fmt.Errorf("saving API key: %w", err)
	}
	cmd.Printf("%s API key saved.\n", provider)
	return nil
}

// parseSettingValue coerces CLI input into the richest matching type.
func parseSettingValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
