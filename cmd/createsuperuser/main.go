// Command createsuperuser bootstraps an administrative account.
package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"postboard/internal/app"
	"postboard/internal/config"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("createsuperuser", flag.ContinueOnError)
	email := fs.String("email", "", "email of the new superuser")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	logger := app.NewLogger(cfg.Log.Level)
	if err != nil {
		logger.Errorf("load config: %v", err)
		return 1
	}

	password := strings.TrimSpace(os.Getenv("POSTBOARD_SUPERUSER_PASSWORD"))

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Errorf("build app: %v", err)
		return 1
	}
	defer a.Close()

	user, err := a.Users.CreateSuperuser(ctx, *email, password)
	if err != nil {
		logger.Errorf("create superuser: %v", err)
		return 1
	}
	logger.Infof("superuser %s created (id %d)", user.Email, user.ID)
	return 0
}
