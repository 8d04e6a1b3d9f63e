package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dungeon-keeper/internal/config"
	"dungeon-keeper/internal/content"
	"dungeon-keeper/internal/i18n"
	"dungeon-keeper/internal/journal"
	"dungeon-keeper/internal/logging"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:           "dungeonkeeper",
	Short:         "DungeonKeeper community bot: support cases, focus timers, reminders",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runBot,
}

var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration and print the effective settings",
	RunE:  runCheckConfig,
}

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Print the newest case journal entries",
	RunE:  runJournal,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to an optional .env file")
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "number of entries to print")

	rootCmd.AddCommand(checkConfigCmd)
	rootCmd.AddCommand(journalCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.Init(os.Stdout, logging.ParseLevel(cfg.LogLevel), cfg.NoColor)
	return cfg, nil
}

func runCheckConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	quotes, err := content.Load(cfg.ContentPath)
	if err != nil {
		return err
	}
	tr, err := i18n.Embedded(i18n.DefaultLang)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "staff chat:      %d\n", cfg.StaffChatID)
	fmt.Fprintf(out, "content:         %s (%d quotes, %d topics)\n", cfg.ContentPath, len(quotes.Quotes), len(quotes.Topics))
	fmt.Fprintf(out, "languages:       %v\n", tr.Available())
	fmt.Fprintf(out, "sweep interval:  %s\n", cfg.SweepInterval)
	fmt.Fprintf(out, "send rate:       %.1f/s (burst %d)\n", cfg.SendRate, cfg.SendBurst)
	if cfg.JournalPath != "" {
		fmt.Fprintf(out, "journal:         %s\n", cfg.JournalPath)
	} else {
		fmt.Fprintln(out, "journal:         disabled")
	}
	if cfg.DashboardEnabled() {
		fmt.Fprintf(out, "dashboard:       %s (public %s)\n", cfg.HTTPAddr, cfg.PublicURL)
	} else {
		fmt.Fprintln(out, "dashboard:       disabled")
	}
	if cfg.UsesDevSecret() {
		fmt.Fprintln(out, "warning:         SESSION_SECRET is the development default")
	}
	return nil
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if cfg.JournalPath == "" {
		return errors.New("JOURNAL_PATH is not set")
	}

	store, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(cmd.Context(), journalLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %.8s  case #%-4d %-11s actor=%d  %s\n",
			e.CreatedAt.UTC().Format("2006-01-02 15:04:05"), e.BootID, e.CaseID, e.Kind, e.ActorID, e.Body)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "journal is empty")
	}
	return nil
}
