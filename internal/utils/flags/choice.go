package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderTemplate = "<%s>"
	choiceSeparatorLiteral    = "|"
	choiceUsageTemplate       = "`%s` %s"
	unsupportedChoiceTemplate = "unsupported value %q for --%s, expected one of %s"
)

// FormatChoiceUsage renders choices as a placeholder with the default capitalized, then the description.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := normalizeChoice(defaultChoice)
	rendered := make([]string, 0, len(choices))
	for _, choice := range uniqueChoices(choices) {
		if choice == normalizedDefault {
			choice = strings.ToUpper(choice)
		}
		rendered = append(rendered, choice)
	}

	placeholder := fmt.Sprintf(choicePlaceholderTemplate, strings.Join(rendered, choiceSeparatorLiteral))
	if len(strings.TrimSpace(description)) == 0 {
		return "`" + placeholder + "`"
	}
	return fmt.Sprintf(choiceUsageTemplate, placeholder, description)
}

// ValidateChoice normalizes value and checks it against choices.
func ValidateChoice(flagName string, value string, choices []string) (string, error) {
	normalizedValue := normalizeChoice(value)
	allowed := uniqueChoices(choices)
	for _, choice := range allowed {
		if choice == normalizedValue {
			return normalizedValue, nil
		}
	}
	return "", fmt.Errorf(unsupportedChoiceTemplate, value, flagName, strings.Join(allowed, ", "))
}

func uniqueChoices(choices []string) []string {
	unique := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		normalized := normalizeChoice(choice)
		if len(normalized) == 0 {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		unique = append(unique, normalized)
	}
	return unique
}

func normalizeChoice(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
