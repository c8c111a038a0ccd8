package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/artemshloyda/heic2jpeg/internal/config"
	"github.com/artemshloyda/heic2jpeg/internal/offline"
	"github.com/artemshloyda/heic2jpeg/internal/pipeline"
)

// newShellManager создаёт менеджер офлайн-кэша оболочки.
func newShellManager() (*offline.Manager, *offline.Store, error) {
	store, err := offline.NewStore(cfg.CacheDir())
	if err != nil {
		return nil, nil, fmt.Errorf("не удалось открыть офлайн-кэш: %w", err)
	}

	m := offline.NewManager(store, offline.DefaultManifest(), ShellVersion, cfg.Origin, cfg.CacheStrategy)
	return m, store, nil
}

// newServeCmd создаёт команду serve.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Запустить локальный сервер оболочки с офлайн-кэшем",
		Long: `Запускает локальный HTTP сервер, раздающий оболочку приложения
через офлайн-кэш. При пустом кэше выполняется первая установка
текущей версии.`,
		RunE: runServe,
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ServeAddr, "addr", cfg.ServeAddr, "Адрес для прослушивания")
	flags.StringVar(&cfg.Origin, "origin", cfg.Origin, "Базовый URL источника оболочки")
	strategy := flags.String("strategy", string(cfg.CacheStrategy),
		"Стратегия кэша: cache-first или network-first")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("strategy") {
			cfg.CacheStrategy = config.Strategy(*strategy)
		}
		switch cfg.CacheStrategy {
		case config.StrategyCacheFirst, config.StrategyNetworkFirst:
			return nil
		default:
			return fmt.Errorf("неизвестная стратегия: %s", cfg.CacheStrategy)
		}
	}

	return cmd
}

// runServe запускает сервер оболочки до отмены.
func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	m, _, err := newShellManager()
	if err != nil {
		return err
	}

	// Первая установка при пустом кэше
	if m.ActiveVersion() == "" {
		fmt.Printf("📦 Установка оболочки %s...\n", ShellVersion)
		if err := m.Install(ctx); err != nil {
			return fmt.Errorf("не удалось установить оболочку: %w", err)
		}
		if err := m.Activate(); err != nil {
			return err
		}
	}

	server := &http.Server{Addr: cfg.ServeAddr, Handler: m.Handler()}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Printf("🚀 Оболочка доступна на http://%s (версия %s, стратегия %s)\n",
		cfg.ServeAddr, m.ActiveVersion(), cfg.CacheStrategy)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newCacheCmd создаёт команду cache с подкомандами.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Управление офлайн-кэшем оболочки",
	}

	cmd.AddCommand(newCacheInstallCmd())
	cmd.AddCommand(newCacheActivateCmd())
	cmd.AddCommand(newCacheStatusCmd())
	cmd.AddCommand(newCacheUpdateCmd())

	return cmd
}

// newCacheInstallCmd создаёт команду cache install.
func newCacheInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Установить текущую версию оболочки в кэш",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			m, _, err := newShellManager()
			if err != nil {
				return err
			}

			sess := offline.NewSession(nil)
			m.Register(sess)

			fmt.Printf("📦 Установка оболочки %s из %s...\n", ShellVersion, cfg.Origin)
			if err := m.Install(ctx); err != nil {
				return fmt.Errorf("установка не удалась: %w", err)
			}

			fmt.Printf("✅ Версия %s установлена\n", ShellVersion)
			for _, msg := range sess.Messages() {
				if msg.Type == offline.MsgUpdateAvailable {
					fmt.Printf("🔄 Доступно обновление %s, активируйте: heic2jpeg cache activate\n", msg.Version)
				}
			}
			return nil
		},
	}
}

// newCacheActivateCmd создаёт команду cache activate.
func newCacheActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate",
		Short: "Активировать установленную версию оболочки",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := newShellManager()
			if err != nil {
				return err
			}

			sess := offline.NewSession(func() {
				fmt.Println("🔄 Оболочка перезагружена на новую версию")
			})
			m.Register(sess)

			// Активация выполняется по тому же протоколу сообщений,
			// что и запрос из оболочки
			if err := m.HandleMessage(sess, offline.Message{Type: offline.MsgSkipWaiting}); err != nil {
				return fmt.Errorf("активация не удалась: %w", err)
			}

			fmt.Printf("✅ Активна версия %s\n", m.ActiveVersion())
			return nil
		},
	}
}

// newCacheStatusCmd создаёт команду cache status.
func newCacheStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Показать состояние офлайн-кэша",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, store, err := newShellManager()
			if err != nil {
				return err
			}

			// Версию спрашиваем по протоколу сообщений
			sess := offline.NewSession(nil)
			m.Register(sess)
			if err := m.HandleMessage(sess, offline.Message{Type: offline.MsgGetVersion}); err != nil {
				return err
			}

			current := ShellVersion
			for _, msg := range sess.Messages() {
				if msg.Type == offline.MsgVersion {
					current = msg.Version
				}
			}

			active := m.ActiveVersion()
			if active == "" {
				active = "нет"
			}
			waiting := m.WaitingVersion()
			if waiting == "" {
				waiting = "нет"
			}

			fmt.Printf("📊 Офлайн-кэш:\n")
			fmt.Printf("   Версия приложения: %s\n", current)
			fmt.Printf("   Активная версия: %s\n", active)
			fmt.Printf("   Ожидающая версия: %s\n", waiting)
			if m.UpdateAvailable() {
				fmt.Printf("   🔄 Обновление готово к активации\n")
			}

			versions, err := store.Versions()
			if err != nil {
				return err
			}
			for _, v := range versions {
				size, _ := store.Size(v)
				fmt.Printf("   Кэш %s: %s\n", v, pipeline.FormatBytes(size))
			}

			return nil
		},
	}
}

// newCacheUpdateCmd создаёт команду cache update.
func newCacheUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Проверить и установить обновление оболочки",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			apply, _ := cmd.Flags().GetBool("apply")

			m, _, err := newShellManager()
			if err != nil {
				return err
			}

			if m.ActiveVersion() == ShellVersion {
				fmt.Printf("✅ Уже актуальная версия %s\n", ShellVersion)
				return nil
			}

			fmt.Printf("📦 Загрузка версии %s...\n", ShellVersion)
			if err := m.Install(ctx); err != nil {
				return fmt.Errorf("обновление не удалось: %w", err)
			}

			if !apply {
				fmt.Printf("🔄 Обновление %s готово, активируйте: heic2jpeg cache update --apply\n", ShellVersion)
				return nil
			}

			sess := offline.NewSession(func() {
				fmt.Println("🔄 Оболочка перезагружена на новую версию")
			})
			m.Register(sess)
			if err := m.HandleMessage(sess, offline.Message{Type: offline.MsgSkipWaiting}); err != nil {
				return err
			}

			fmt.Printf("✅ Активна версия %s\n", m.ActiveVersion())
			return nil
		},
	}

	cmd.Flags().Bool("apply", false, "Сразу активировать установленное обновление")

	return cmd
}
