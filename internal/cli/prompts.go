package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// PromptForQuestion prompts the user for an analytical question
func PromptForQuestion() (string, error) {
	var question string
	prompt := &survey.Input{
		Message: "¿Qué quieres saber?",
		Help:    "Ask about reservations or grouped accounts. Include 'gráfica' to get a chart. Type 'exit' to quit.",
	}

	err := survey.AskOne(prompt, &question, survey.WithValidator(func(val interface{}) error {
		str, ok := val.(string)
		if !ok {
			return fmt.Errorf("invalid input")
		}
		if strings.TrimSpace(str) == "" {
			return fmt.Errorf("question cannot be empty")
		}
		return nil
	}))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(question), nil
}

// PromptForReload asks whether to rebuild the snapshot before the session
func PromptForReload() (bool, error) {
	reload := false
	prompt := &survey.Confirm{
		Message: "Rebuild the snapshot from the spreadsheets first?",
		Default: false,
	}
	if err := survey.AskOne(prompt, &reload); err != nil {
		return false, err
	}
	return reload, nil
}
