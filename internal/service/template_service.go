// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/unclebandit/cadence-backend/internal/model"
)

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

// RenderContent fills the {platform_name} and {platform_type} placeholders for one fan-out leg.
func RenderContent(content string, platform *model.Platform) string {
	if platform == nil {
		return content
	}
	return RenderTemplate(content, map[string]string{
		"platform_name": platform.Name,
		"platform_type": string(platform.Type),
	})
}
