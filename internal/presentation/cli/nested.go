package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"capture-session/internal/application"
)

const nestedHelp = `Команды:
  add              добавить строку
  rename <имя>     переименовать текущий экран
  delete <i> ...   удалить строки по номерам
  open <i>         открыть строку
  back             вернуться на экран назад
  goto <n>         вернуться на экран n навигации (0 - корень)
  camera           снять кадр камеры для текущего экрана
  dismiss          закрыть сообщение камеры
  show             показать текущий экран
  quit             выйти`

// NestedREPL интерактивная навигация по вложенным строкам
type NestedREPL struct {
	root      application.Row
	container application.Container
	newID     application.IDGenerator
	feed      application.FeedSubscriber
	logger    application.Logger
	out       io.Writer

	snapshotTimeout time.Duration
}

// NewNestedREPL создает навигацию с пустым корневым экраном
func NewNestedREPL(feed application.FeedSubscriber, newID application.IDGenerator, out io.Writer, logger application.Logger) *NestedREPL {
	return &NestedREPL{
		root:            application.NewRow(newID, "Root"),
		newID:           newID,
		feed:            feed,
		logger:          logger,
		out:             out,
		snapshotTimeout: 5 * time.Second,
	}
}

func (c *CLI) newNestedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "nested",
		Short: "Интерактивная навигация по вложенным строкам",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			feed := c.newFeed()
			defer c.closeFeed(feed)

			repl := NewNestedREPL(feed, c.deps.NewID, cmd.OutOrStdout(), c.logger.Named("nested"))
			return repl.Run(cmd.Context(), c.deps.In)
		},
	}
}

// Run читает команды до quit или конца ввода
func (r *NestedREPL) Run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	r.render()

	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		quit, err := r.Exec(ctx, scanner.Text())
		if err != nil {
			fmt.Fprintln(r.out, color.RedString("Ошибка: %v", err))
		}
		if quit {
			return nil
		}
	}
}

// Exec выполняет одну команду
func (r *NestedREPL) Exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Fprintln(r.out, nestedHelp)
		return false, nil

	case "show", "ls":

	case "add":
		r.send(application.AddRow{})

	case "rename":
		name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "rename"))
		r.send(application.RenameRow{Name: name})

	case "delete":
		indexes, err := parseIndexes(fields[1:])
		if err != nil {
			return false, err
		}
		r.send(application.DeleteRows{Indexes: indexes})

	case "open":
		indexes, err := parseIndexes(fields[1:])
		if err != nil || len(indexes) != 1 {
			return false, errors.New("использование: open <i>")
		}
		current := r.current()
		i := indexes[0]
		if i < 0 || i >= len(current.Rows) {
			return false, errors.Errorf("нет строки %d", i)
		}
		application.ReduceContainer(&r.container, application.Push{Row: current.Rows[i].Clone()}, r.newID)

	case "back":
		if len(r.container.Path) == 0 {
			return false, errors.New("уже на корневом экране")
		}
		application.ReduceContainer(&r.container, application.PopLast{}, r.newID)

	case "goto":
		indexes, err := parseIndexes(fields[1:])
		if err != nil || len(indexes) != 1 {
			return false, errors.New("использование: goto <n>")
		}
		r.goTo(indexes[0])

	case "camera":
		if err := r.snapshot(ctx); err != nil {
			return false, err
		}

	case "dismiss":
		destination := r.current().Destination
		if destination == nil || destination.Camera == nil || destination.Camera.Alert == nil {
			return false, errors.New("нет сообщения камеры")
		}
		r.send(application.DestinationAction{Camera: application.AlertDismissed{}})
		r.send(application.CloseCamera{})

	default:
		return false, errors.Errorf("неизвестная команда %q, см. help", fields[0])
	}

	r.render()
	return false, nil
}

// current возвращает верхний экран навигации
func (r *NestedREPL) current() *application.Row {
	if top, ok := r.container.Top(); ok {
		return &top.Row
	}
	return &r.root
}

// send применяет действие к текущему экрану
func (r *NestedREPL) send(action application.NestedAction) application.Effect {
	if top, ok := r.container.Top(); ok {
		return application.ReduceContainer(&r.container, application.PathAction{ID: top.ID, Action: action}, r.newID)
	}
	return application.ReduceNested(&r.root, action, r.newID)
}

func (r *NestedREPL) goTo(depth int) {
	switch {
	case depth <= 0:
		application.ReduceContainer(&r.container, application.PopToRoot{}, r.newID)
	case depth <= len(r.container.Path):
		application.ReduceContainer(&r.container, application.GoBackToScreen{ID: r.container.Path[depth-1].ID}, r.newID)
	}
}

// snapshot открывает камеру на текущем экране и ждет первый кадр или ошибку.
// Ошибка остается на экране камеры, пока пользователь не закроет сообщение.
func (r *NestedREPL) snapshot(ctx context.Context) error {
	r.send(application.OpenCamera{})

	if r.send(application.DestinationAction{Camera: application.StartFeed{}}) != application.EffectRunFeed {
		r.send(application.CloseCamera{})
		return nil
	}

	states := make(chan application.CameraState, 1)
	feature := application.NewCameraFeature(r.feed, r.logger)
	feature.Observe(func(state application.CameraState) {
		if state.PreviewImage == nil && state.Alert == nil {
			return
		}
		select {
		case states <- state:
		default:
		}
	})
	feature.Send(application.StartFeed{})
	defer feature.Stop()

	timer := time.NewTimer(r.snapshotTimeout)
	defer timer.Stop()

	select {
	case state := <-states:
		if state.Alert != nil {
			r.send(application.DestinationAction{Camera: application.CameraFailed{Err: state.Alert.Kind.Err()}})
			return nil
		}
		r.send(application.DestinationAction{Camera: application.FrameReceived{Frame: *state.PreviewImage}})
		r.send(application.CloseCamera{})
		return nil
	case <-timer.C:
		r.send(application.CloseCamera{})
		return errors.New("камера не прислала кадр")
	case <-ctx.Done():
		r.send(application.CloseCamera{})
		return ctx.Err()
	}
}

func (r *NestedREPL) render() {
	titles := []string{r.root.Title()}
	for _, element := range r.container.Path {
		titles = append(titles, element.Row.Title())
	}
	fmt.Fprintln(r.out, color.New(color.Bold).Sprint(strings.Join(titles, " > ")))

	current := r.current()
	if len(current.Rows) == 0 {
		fmt.Fprintln(r.out, color.New(color.Faint).Sprint("  (пусто)"))
	}
	for i, row := range current.Rows {
		fmt.Fprintf(r.out, "  [%d] %s", i, row.Title())
		if n := len(row.Rows); n > 0 {
			fmt.Fprintf(r.out, " (%d)", n)
		}
		fmt.Fprintln(r.out)
	}

	if frame := current.CurrentFrame; frame != nil && frame.Image != nil {
		size := frame.Image.Bounds().Size()
		fmt.Fprintf(r.out, "  Последний кадр: #%d %dx%d\n", frame.Seq, size.X, size.Y)
	}

	if destination := current.Destination; destination != nil && destination.Camera != nil {
		if alert := destination.Camera.Alert; alert != nil {
			fmt.Fprintf(r.out, "%s\n%s\n[%s] (dismiss)\n",
				color.New(color.FgYellow, color.Bold).Sprint(alert.Title),
				alert.Message, alert.Button)
		}
	}
}

func parseIndexes(args []string) ([]int, error) {
	indexes := make([]int, 0, len(args))
	for _, arg := range args {
		i, err := strconv.Atoi(arg)
		if err != nil {
			return nil, errors.Errorf("некорректный номер %q", arg)
		}
		indexes = append(indexes, i)
	}
	return indexes, nil
}
