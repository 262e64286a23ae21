package commands

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/voxlate/voxlate/pkg/settings"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and edit settings",
	Long: `View and edit voxlate settings.

Settings are a single YAML file in the OS config directory (override
with --config or VOXLATE_CONFIG).

Examples:
  voxlate config view
  voxlate config set api_key sk-xxx
  voxlate config set response_modality text
  voxlate config get voice
  voxlate config path`,
}

// settingAccess binds a settings key name to its field.
type settingAccess struct {
	get func(*settings.Settings) string
	set func(*settings.Settings, string) error
}

var settingKeys = map[string]settingAccess{
	"api_key": {
		get: func(s *settings.Settings) string { return s.APIKey },
		set: func(s *settings.Settings, v string) error { s.APIKey = v; return nil },
	},
	"model": {
		get: func(s *settings.Settings) string { return s.Model },
		set: func(s *settings.Settings, v string) error { s.Model = v; return nil },
	},
	"system_prompt": {
		get: func(s *settings.Settings) string { return s.SystemPrompt },
		set: func(s *settings.Settings, v string) error { s.SystemPrompt = v; return nil },
	},
	"voice": {
		get: func(s *settings.Settings) string { return s.Voice },
		set: func(s *settings.Settings, v string) error { s.Voice = v; return nil },
	},
	"response_modality": {
		get: func(s *settings.Settings) string { return string(s.ResponseModality) },
		set: func(s *settings.Settings, v string) error {
			switch settings.Modality(v) {
			case settings.ModalityAudio, settings.ModalityText:
				s.ResponseModality = settings.Modality(v)
				return nil
			}
			return fmt.Errorf("response_modality must be %q or %q", settings.ModalityAudio, settings.ModalityText)
		},
	},
	"speech_language": {
		get: func(s *settings.Settings) string { return s.SpeechLanguage },
		set: func(s *settings.Settings, v string) error { s.SpeechLanguage = v; return nil },
	},
	"theme": {
		get: func(s *settings.Settings) string { return s.Theme },
		set: func(s *settings.Settings, v string) error {
			if v != "dark" && v != "light" {
				return fmt.Errorf("theme must be \"dark\" or \"light\"")
			}
			s.Theme = v
			return nil
		},
	},
	"history_dir": {
		get: func(s *settings.Settings) string { return s.HistoryDir },
		set: func(s *settings.Settings, v string) error { s.HistoryDir = v; return nil },
	},
	"archive_dir": {
		get: func(s *settings.Settings) string { return s.ArchiveDir },
		set: func(s *settings.Settings, v string) error { s.ArchiveDir = v; return nil },
	},
}

// redactSecret keeps the last four characters of a secret visible.
func redactSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetSettings()
		if err != nil {
			return err
		}
		reveal, _ := cmd.Flags().GetBool("reveal")

		keys := make([]string, 0, len(settingKeys))
		for k := range settingKeys {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, k := range keys {
			v := settingKeys[k].get(&s)
			if k == "api_key" && !reveal {
				v = redactSecret(v)
			}
			fmt.Fprintf(w, "%s\t%s\n", k, v)
		}
		return w.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := GetSettings()
		if err != nil {
			return err
		}
		acc, ok := settingKeys[args[0]]
		if !ok {
			return fmt.Errorf("unknown key %q", args[0])
		}
		fmt.Println(acc.get(&s))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		acc, ok := settingKeys[key]
		if !ok {
			return fmt.Errorf("unknown key %q", key)
		}

		path, err := settingsPath()
		if err != nil {
			return err
		}
		s, err := settings.Load(path)
		if err != nil {
			return err
		}
		if err := acc.set(&s, value); err != nil {
			return err
		}
		if err := s.Save(path); err != nil {
			return err
		}
		globalSettings = &s

		shown := value
		if key == "api_key" {
			shown = redactSecret(value)
		}
		fmt.Printf("%s = %s\n", key, shown)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := settingsPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	configViewCmd.Flags().Bool("reveal", false, "show the API key unredacted")

	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
