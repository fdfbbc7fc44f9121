package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/AlecAivazis/survey/v2/terminal"
)

// runInteractiveMode asks questions in a loop until the user exits
func runInteractiveMode(ctx context.Context, configPath string) error {
	DisplayWelcomeBanner()

	s, err := openSession(configPath)
	if err != nil {
		return err
	}
	defer s.Close()

	reload, err := PromptForReload()
	if err != nil {
		return ignoreInterrupt(err)
	}
	if reload {
		res, err := s.runtime.Engine().Reloader.Reload(ctx)
		if err != nil {
			DisplayError(err)
		} else {
			DisplayReload(res)
		}
	}

	for {
		question, err := PromptForQuestion()
		if err != nil {
			return ignoreInterrupt(err)
		}
		if isExit(question) {
			DisplayInfo("¡Hasta luego!")
			return nil
		}
		// errors are already shown; keep the session going
		_ = askOnce(ctx, s, question, false)
	}
}

func isExit(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exit", "quit", "salir":
		return true
	}
	return false
}

func ignoreInterrupt(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return nil
	}
	return err
}
