package main

import (
	"context"
	"os"

	"capture-session/internal/presentation/cli"
)

func main() {
	// Зависимости по умолчанию создаются после чтения конфигурации
	root := cli.NewRootCommand(cli.Dependencies{})

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
