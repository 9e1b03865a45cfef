package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength           = 3
	MaxUsernameLength           = 30
	MinProjectTitleLength       = 3
	MaxProjectTitleLength       = 200
	MinProjectDescriptionLength = 10
	MaxProjectDescriptionLength = 5000
	MinCoverLetterLength        = 10
	MaxCoverLetterLength        = 2000
	MinDeliverableDescription   = 3
	MaxDeliverableDescription   = 5000
	MaxReviewFeedbackLength     = 2000
	MaxBudget                   = 100000000.0 // 100 миллионов
)

var emailRegexp = regexp.MustCompile(`^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("некорректный формат email")
	}
	return nil
}

// ValidateProjectTitle проверяет название проекта.
func ValidateProjectTitle(title string) error {
	return ValidateLength("название проекта", strings.TrimSpace(title), MinProjectTitleLength, MaxProjectTitleLength)
}

// ValidateProjectDescription проверяет описание проекта.
func ValidateProjectDescription(description string) error {
	return ValidateLength("описание проекта", strings.TrimSpace(description), MinProjectDescriptionLength, MaxProjectDescriptionLength)
}

// ValidateCoverLetter проверяет сопроводительное письмо предложения.
func ValidateCoverLetter(coverLetter string) error {
	return ValidateLength("сопроводительное письмо", strings.TrimSpace(coverLetter), MinCoverLetterLength, MaxCoverLetterLength)
}

// ValidateDeliverableDescription проверяет описание результата работы.
func ValidateDeliverableDescription(description string) error {
	return ValidateLength("описание результата", strings.TrimSpace(description), MinDeliverableDescription, MaxDeliverableDescription)
}

// ValidateBudget проверяет границы бюджета. Обе границы строго положительны,
// как и соответствующее ограничение в схеме БД.
func ValidateBudget(min, max float64) error {
	if min <= 0 || max <= 0 {
		return fmt.Errorf("бюджет должен быть положительным")
	}
	if max > MaxBudget {
		return fmt.Errorf("бюджет не может превышать %.0f", MaxBudget)
	}
	if min > max {
		return fmt.Errorf("минимальный бюджет не может превышать максимальный")
	}
	return nil
}
