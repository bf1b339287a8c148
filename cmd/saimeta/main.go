// Saimeta - SAI metadata validation and object graph inspection
//
// A CLI over the saimeta library for:
//   - Checking attribute schema files
//   - Warm-start discovery of a switch's ASIC_DB (or a JSON dump of it)
//   - Reference graph queries (who references an object, can it be removed)
//   - Watching switch notifications as the metadata layer processes them
//
// Examples:
//
//	saimeta schema check ./schema.yaml
//	saimeta discover --dump asic_db.json
//	saimeta discover --redis 10.0.0.1:6379 --save asic_db.json
//	saimeta --ssh-host leaf1 --ssh-user admin refs oid:0x3000000000002
//	saimeta watch
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/saimeta/pkg/audit"
	"github.com/newtron-network/saimeta/pkg/schema"
	"github.com/newtron-network/saimeta/pkg/settings"
	"github.com/newtron-network/saimeta/pkg/util"
	"github.com/newtron-network/saimeta/pkg/version"
)

var (
	// Global option flags (override settings)
	schemaPath string
	redisAddr  string
	asicDB     int
	countersDB int
	sshHost    string
	sshUser    string
	sshPort    int
	knownHosts string
	recordFile string
	verbose    bool
	jsonOutput bool
	logJSON    bool

	// Global state
	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "saimeta",
	Short:             "SAI metadata validation and object graph inspection",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Saimeta validates switch abstraction interface operations against an
attribute schema and tracks the reference graph between switch objects.

Connection defaults come from ~/.saimeta/settings.json; flags override them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}
		if isSettingsOrHelp(cmd) {
			return nil
		}
		applySettings(cmd)

		level := userSettings.GetLogLevel()
		if verbose {
			level = "debug"
		}
		if err := util.SetLogLevel(level); err != nil {
			return err
		}
		if logJSON {
			util.SetJSONFormat()
		}

		if recordFile != "" {
			recorder, err := audit.NewFileRecorder(recordFile, audit.RotationConfig{
				MaxSize:    10 * 1024 * 1024, // 10MB
				MaxBackups: 10,
			})
			if err != nil {
				util.Warnf("Could not initialize operation recording: %v", err)
			} else {
				audit.SetDefault(recorder)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Attribute schema file (built-in schema when empty)")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Switch Redis address")
	rootCmd.PersistentFlags().IntVar(&asicDB, "asic-db", 0, "ASIC_DB database number")
	rootCmd.PersistentFlags().IntVar(&countersDB, "counters-db", 0, "COUNTERS_DB database number")
	rootCmd.PersistentFlags().StringVar(&sshHost, "ssh-host", "", "Reach Redis through an SSH tunnel to this host")
	rootCmd.PersistentFlags().StringVar(&sshUser, "ssh-user", "", "SSH user")
	rootCmd.PersistentFlags().IntVar(&sshPort, "ssh-port", 0, "SSH port")
	rootCmd.PersistentFlags().StringVar(&knownHosts, "known-hosts", "", "known_hosts file for SSH host key checking")
	rootCmd.PersistentFlags().StringVar(&recordFile, "record", "", "Record operations to this JSON-lines file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "JSON output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "inspect", Title: "Inspection:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)
	for _, cmd := range []*cobra.Command{schemaCmd, discoverCmd, refsCmd, watchCmd} {
		cmd.GroupID = "inspect"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, recordCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String("saimeta"))
	},
}

// applySettings fills flags the user did not pass from the settings file.
func applySettings(cmd *cobra.Command) {
	flags := cmd.Flags()
	if !flags.Changed("schema") && schemaPath == "" {
		schemaPath = userSettings.SchemaPath
	}
	if !flags.Changed("redis") {
		redisAddr = userSettings.GetRedisAddr()
	}
	if !flags.Changed("asic-db") {
		asicDB = userSettings.GetAsicDB()
	}
	if !flags.Changed("counters-db") {
		countersDB = userSettings.GetCountersDB()
	}
	if !flags.Changed("ssh-host") {
		sshHost = userSettings.SSHHost
	}
	if !flags.Changed("ssh-user") {
		sshUser = userSettings.SSHUser
	}
	if !flags.Changed("ssh-port") {
		sshPort = userSettings.GetSSHPort()
	}
	if !flags.Changed("known-hosts") {
		knownHosts = userSettings.KnownHosts
	}
	if !flags.Changed("record") {
		recordFile = userSettings.RecordFile
	}
}

func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "help", "version":
			return true
		}
	}
	return false
}

// loadSchema returns the schema named by --schema, or the built-in one.
func loadSchema() (*schema.Schema, error) {
	if schemaPath == "" {
		return schema.Default()
	}
	s, err := schema.Load(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	return s, nil
}
