package server

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"letter-rush/internal/game"
)

const (
	maxNameLength     = 20
	maxAnswerLength   = 60
	maxCategoryLength = 32
	maxCategories     = 12
	maxRoundsPerGame  = 10
	maxLobbyPlayers   = 12
)

var validatorOnce sync.Once

func registerValidators() {
	validatorOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("displayname", func(fl validator.FieldLevel) bool {
			_, err := validateName(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("answer", func(fl validator.FieldLevel) bool {
			_, err := validateAnswer(fl.Field().String())
			return err == nil
		})
		_ = engine.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			_, err := validateCategory(fl.Field().String())
			return err == nil
		})
	})
}

func validateName(name string) (string, error) {
	return validateText("name", name, maxNameLength)
}

// validateAnswer allows blanks: skipping a category is legal.
func validateAnswer(text string) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", nil
	}
	if len(trimmed) > maxAnswerLength {
		return "", fmt.Errorf("answer must be %d characters or fewer", maxAnswerLength)
	}
	if !isSafeText(trimmed) {
		return "", errors.New("answer contains unsupported characters")
	}
	return trimmed, nil
}

func validateCategory(text string) (string, error) {
	return validateText("category", text, maxCategoryLength)
}

func validateSettings(settings *game.Settings) error {
	if settings.MaxRounds < 1 || settings.MaxRounds > maxRoundsPerGame {
		return fmt.Errorf("rounds must be between 1 and %d", maxRoundsPerGame)
	}
	if settings.MaxPlayers < 2 || settings.MaxPlayers > maxLobbyPlayers {
		return fmt.Errorf("max players must be between 2 and %d", maxLobbyPlayers)
	}
	if settings.TimedMode && (settings.RoundDurationSeconds < 10 || settings.RoundDurationSeconds > 300) {
		return errors.New("round duration must be between 10 and 300 seconds")
	}
	if settings.DisputeVotingWindowSeconds < 5 || settings.DisputeVotingWindowSeconds > 120 {
		return errors.New("dispute voting window must be between 5 and 120 seconds")
	}
	if settings.UniqueAnswerPoints < 0 || settings.SharedAnswerPoints < 0 || settings.BestAnswerBonusPoints < 0 {
		return errors.New("points must not be negative")
	}
	if len(settings.Categories) > maxCategories {
		return fmt.Errorf("at most %d categories allowed", maxCategories)
	}
	for i, category := range settings.Categories {
		trimmed, err := validateCategory(category)
		if err != nil {
			return err
		}
		settings.Categories[i] = trimmed
	}
	return nil
}

func validateText(label, text string, maxLen int) (string, error) {
	trimmed := normalizeText(text)
	if trimmed == "" {
		return "", fmt.Errorf("%s is required", label)
	}
	if len(trimmed) > maxLen {
		return "", fmt.Errorf("%s must be %d characters or fewer", label, maxLen)
	}
	if !isSafeText(trimmed) {
		return "", fmt.Errorf("%s contains unsupported characters", label)
	}
	return trimmed, nil
}

func normalizeText(text string) string {
	fields := strings.Fields(strings.TrimSpace(text))
	return strings.Join(fields, " ")
}

func isSafeText(text string) bool {
	for _, r := range text {
		if r > 127 {
			return false
		}
		if r >= 'a' && r <= 'z' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			continue
		}
		if r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case ' ', '-', '_', '\'', '"', '.', ',', '!', '?', ':', ';', '&', '(', ')', '/':
			continue
		default:
			return false
		}
	}
	return true
}
