package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"capture-session/internal/application"
	"capture-session/internal/config"
	"capture-session/internal/domain"
	"capture-session/internal/infrastructure/camera"
	"capture-session/internal/infrastructure/logger"
	"capture-session/internal/infrastructure/preview"
)

// Dependencies внешние зависимости CLI. Незаданные создаются по умолчанию.
type Dependencies struct {
	Driver     application.CaptureDriver
	Authorizer application.Authorizer
	NewID      application.IDGenerator
	In         io.Reader
}

// CLI представляет CLI интерфейс приложения
type CLI struct {
	deps   Dependencies
	viper  *viper.Viper
	config config.Config
	logger *logger.LogrusLogger

	configPath string
	debug      bool
}

// флаги, которые перекрывают ключи конфигурации
var flagKeys = map[string]string{
	"device":       "camera.device_id",
	"width":        "camera.width",
	"height":       "camera.height",
	"fps":          "camera.frame_rate",
	"orientation":  "camera.orientation",
	"max-sessions": "feed.max_sessions",
	"addr":         "server.addr",
	"log-format":   "log.format",
}

// NewRootCommand создает корневую команду capture-demo
func NewRootCommand(deps Dependencies) *cobra.Command {
	c := &CLI{deps: deps, viper: config.New()}

	root := &cobra.Command{
		Use:               "capture-demo",
		Short:             "Демо захвата камеры и вложенной навигации",
		Long:              `capture-demo запускает сессию захвата камеры и раздает превью в браузер, а также показывает рекурсивную навигацию по вложенным строкам.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "путь к файлу конфигурации")
	flags.BoolVar(&c.debug, "debug", false, "включить отладочные сообщения")
	flags.String("device", "", "ID устройства камеры для использования")
	flags.Int("width", 640, "ширина видео")
	flags.Int("height", 480, "высота видео")
	flags.Int("fps", 30, "частота кадров")
	flags.String("orientation", "up", "ориентация кадра: up, right, down, left")
	flags.Int("max-sessions", 0, "максимум одновременных сессий захвата (0 - без ограничения)")
	flags.String("addr", "localhost:8080", "адрес сервера превью")
	flags.String("log-format", "text", "формат логов: text или json")

	for name, key := range flagKeys {
		_ = c.viper.BindPFlag(key, flags.Lookup(name))
	}

	root.AddCommand(c.newDevicesCommand())
	root.AddCommand(c.newServeCommand())
	root.AddCommand(c.newNestedCommand())

	return root
}

// setup читает конфигурацию и создает зависимости
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(c.viper, c.configPath)
	if err != nil {
		return err
	}
	if c.debug {
		cfg.Log.Level = "debug"
	}
	c.config = cfg

	c.logger, err = logger.NewLogrusLogger(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	if c.deps.Driver == nil {
		c.deps.Driver = camera.NewMediaDevicesDriver(c.logger.Named("camera"))
	}
	if c.deps.Authorizer == nil {
		c.deps.Authorizer = camera.NewDeviceAuthorizer(camera.DefaultDevicePattern)
	}
	if c.deps.NewID == nil {
		c.deps.NewID = uuid.New
	}
	if c.deps.In == nil {
		c.deps.In = cmd.InOrStdin()
	}
	return nil
}

// newFeed создает раздачу кадров камеры по текущей конфигурации
func (c *CLI) newFeed() *application.CameraFeed {
	video := c.config.VideoConfig()
	return application.NewCameraFeed(c.deps.Driver, c.deps.Authorizer, nil, application.FeedOptions{
		Config:      video,
		Converter:   camera.NewPreviewConverter(video),
		MaxSessions: c.config.Feed.MaxSessions,
	}, c.logger.Named("feed"))
}

func (c *CLI) closeFeed(feed *application.CameraFeed) {
	if err := feed.Close(); err != nil {
		c.logger.Error("Ошибка остановки сессий захвата: %v", err)
	}
}

func (c *CLI) newDevicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Показать список доступных камер",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.listDevices(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

// listDevices выводит список доступных устройств
func (c *CLI) listDevices(ctx context.Context, out io.Writer) error {
	devices, err := c.deps.Driver.Devices(ctx)
	if err != nil {
		c.logger.Error("Ошибка получения списка устройств: %v", err)
		return err
	}

	if len(devices) == 0 {
		fmt.Fprintln(out, color.YellowString("Камеры не найдены"))
	} else {
		fmt.Fprintln(out, "Доступные устройства:")
		for i, device := range devices {
			fmt.Fprintf(out, "[%d] %s (%s)\n", i, color.CyanString(device.Label), device.ID)
		}
	}

	status := c.deps.Authorizer.Status(ctx)
	statusColor := color.New(color.Faint)
	switch status {
	case domain.AuthorizationAuthorized:
		statusColor = color.New(color.FgGreen)
	case domain.AuthorizationDenied:
		statusColor = color.New(color.FgRed)
	}
	fmt.Fprintf(out, "Доступ к камере: %s\n", statusColor.Sprint(status))
	return nil
}

func (c *CLI) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить сервер превью камеры",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			feed := c.newFeed()
			defer c.closeFeed(feed)

			server := preview.NewServer(feed, feed.Registry(), preview.Options{}, c.logger.Named("preview"))
			fmt.Fprintf(cmd.OutOrStdout(), "Превью камеры: %s\n", color.CyanString("http://%s", c.config.Server.Addr))
			return server.ListenAndServe(ctx, c.config.Server.Addr)
		},
	}
}
