package cmd

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gptclone/internal/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database schema migrations",
	Long: `Apply or roll back the embedded schema migrations against database.url.
Revisions form a linear chain; each version points to the one before it.`,
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	// 不绑定到 viper: database.url 已由 serve 的同名 flag 绑定，viper 每个 key 只保留一个 flag
	migrateCmd.PersistentFlags().String("database-url", "", "database url (overrides config)")

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m *database.Migrator, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			return m.Down(steps)
		}),
	}
	downCmd.Flags().IntP("steps", "n", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ *cobra.Command, m *database.Migrator, _ []string) error {
				return m.Up()
			}),
		},
		downCmd,
		&cobra.Command{
			Use:   "reset",
			Short: "Roll back every migration",
			Args:  cobra.NoArgs,
			RunE: withMigrator(func(_ *cobra.Command, m *database.Migrator, _ []string) error {
				return m.Reset()
			}),
		},
		&cobra.Command{
			Use:   "goto VERSION",
			Short: "Migrate up or down to the given version",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, m *database.Migrator, args []string) error {
				version, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.Goto(uint(version))
			}),
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Set the version without running migrations (clears the dirty flag)",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrator(func(_ *cobra.Command, m *database.Migrator, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q: %w", args[0], err)
				}
				return m.Force(version)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current migration version",
			Args:  cobra.NoArgs,
			RunE:  withMigrator(runVersion),
		},
		&cobra.Command{
			Use:   "history",
			Short: "List all revisions in chain order",
			Args:  cobra.NoArgs,
			RunE:  withMigrator(runHistory),
		},
	)
}

// withMigrator 打开迁移管理器并在命令结束后关闭
func withMigrator(fn func(cmd *cobra.Command, m *database.Migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		m, err := database.NewMigrator(migrateDatabaseURL(cmd))
		if err != nil {
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close migrator")
			}
		}()

		if err := fn(cmd, m, args); err != nil {
			return err
		}
		if cmd.Name() != "version" && cmd.Name() != "history" {
			return runVersion(cmd, m, args)
		}
		return nil
	}
}

// migrateDatabaseURL 显式传入 --database-url 时优先，否则使用配置
func migrateDatabaseURL(cmd *cobra.Command) string {
	if f := cmd.Flag("database-url"); f != nil && f.Changed {
		return f.Value.String()
	}
	return GetConfig().Database.URL
}

func runVersion(cmd *cobra.Command, m *database.Migrator, _ []string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		cmd.Println("no migrations applied")
		return nil
	}
	if dirty {
		cmd.Printf("version %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("version %d\n", version)
	return nil
}

func runHistory(cmd *cobra.Command, m *database.Migrator, _ []string) error {
	revisions, err := m.Revisions()
	if err != nil {
		return err
	}
	for _, rev := range revisions {
		prev := "<base>"
		if rev.HasPrevious {
			prev = fmt.Sprintf("%06d", rev.Previous)
		}
		mark := " "
		if rev.Applied {
			mark = "*"
		}
		cmd.Printf("%s %s -> %06d  %s\n", mark, prev, rev.Version, rev.Identifier)
	}
	return nil
}
