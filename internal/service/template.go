package service

import "strings"

// RenderTemplate substitutes {token} placeholders with the given data.
// Empty values render as "<unknown>" so a half-filled recipient record
// never leaves a hole in the message.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "<unknown>"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}
