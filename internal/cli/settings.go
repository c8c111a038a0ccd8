package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/heic2jpeg/internal/config"
	"github.com/artemshloyda/heic2jpeg/internal/history"
	"github.com/artemshloyda/heic2jpeg/internal/pipeline"
	"github.com/artemshloyda/heic2jpeg/internal/saver"
	"github.com/artemshloyda/heic2jpeg/internal/settings"
)

// openHistory открывает хранилище истории, создавая директорию
// состояния при необходимости.
func openHistory() (*history.Store, error) {
	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию состояния: %w", err)
	}

	hist, err := history.New(cfg.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть историю: %w", err)
	}
	return hist, nil
}

// newSettingsCmd создаёт команду settings с подкомандами.
func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Просмотр и изменение настроек",
	}

	cmd.AddCommand(newSettingsShowCmd())
	cmd.AddCommand(newSettingsSetCmd())

	return cmd
}

// newSettingsShowCmd создаёт команду settings show.
func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Показать текущие настройки",
		RunE: func(cmd *cobra.Command, args []string) error {
			hist, err := openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			store := settings.NewStore(cfg.SettingsPath(), func() bool {
				return saver.HasFilesystemCapability(hist)
			})
			st := store.Load()

			fmt.Printf("Тема: %s\n", st.Theme)
			fmt.Printf("Качество по умолчанию: %d\n", st.DefaultQuality)
			fmt.Printf("Способ сохранения: %s\n", st.SaveMethod)
			if h := saver.LoadHandle(hist); h != nil {
				fmt.Printf("Выбранная директория: %s (%s)\n", h.Path, h.Permission)
			}

			return nil
		},
	}
}

// newSettingsSetCmd создаёт команду settings set.
func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <ключ> <значение>",
		Short: "Изменить настройку (theme, quality, save-method, directory)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			hist, err := openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			store := settings.NewStore(cfg.SettingsPath(), func() bool {
				return saver.HasFilesystemCapability(hist)
			})
			st := store.Load()

			switch key {
			case "theme":
				st.Theme = settings.Theme(value)
			case "quality":
				n, err := strconv.Atoi(value)
				if err != nil {
					return fmt.Errorf("качество должно быть числом: %w", err)
				}
				st.DefaultQuality = n
			case "save-method":
				st.SaveMethod = settings.SaveMethod(value)
			case "directory":
				// Разрешение запрашивается при первом сохранении
				h := &saver.DirHandle{Path: value, Permission: saver.PermissionNotRequested}
				if err := saver.SaveHandle(hist, h); err != nil {
					return fmt.Errorf("не удалось сохранить директорию: %w", err)
				}
				fmt.Printf("✅ Директория сохранена: %s\n", value)
				return nil
			default:
				return fmt.Errorf("неизвестный ключ %q (theme, quality, save-method, directory)", key)
			}

			if err := store.Save(st); err != nil {
				return err
			}

			fmt.Printf("✅ Настройка сохранена: %s = %s\n", key, value)
			return nil
		},
	}
}

// newHistoryCmd создаёт команду history.
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Показать историю конвертаций",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			hist, err := openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			records, err := hist.ListRecent(limit)
			if err != nil {
				return fmt.Errorf("не удалось получить историю: %w", err)
			}

			for _, r := range records {
				when := time.Unix(r.CreatedAt, 0).Format("2006-01-02 15:04:05")
				switch r.Status {
				case history.StatusOK:
					fmt.Printf("✅ %s  %s -> %s (%s, качество %d)\n",
						when, r.SrcName, r.DstName, pipeline.FormatBytes(r.DstSize), r.Quality)
				default:
					fmt.Printf("❌ %s  %s: %s\n", when, r.SrcName, r.Error)
				}
			}

			total, ok, failed, err := hist.GetStats()
			if err != nil {
				return err
			}

			fmt.Printf("\n📊 Всего записей: %d (успешно: %d, ошибок: %d)\n", total, ok, failed)
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Количество последних записей")

	return cmd
}

// newConfigCmd создаёт команду config.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Работа с конфигурационным файлом",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Вывести пример конфигурационного файла",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Print(config.GenerateExampleConfig())
		},
	})

	return cmd
}
