package render

import (
	"fmt"
	"strings"

	"storyloom/internal/manifest"
	"storyloom/internal/services"
)

// RenderTemplate resolves a layer's text source and substitutes template
// variables into {name} placeholders. A placeholder with no matching variable
// is fatal: a page with silently wrong text is worse than a failed run.
// Doubled braces escape literal braces, format-style.
func RenderTemplate(layer manifest.TextLayer, vars map[string]string) (string, error) {
	template := layer.Template()
	if template == "" {
		return "", fmt.Errorf("%w: text layer has neither text_template nor text_key", services.ErrValidation)
	}
	engine := strings.ToLower(strings.TrimSpace(layer.TemplateEngine))
	if engine != "" && engine != "format" {
		return "", fmt.Errorf("%w: unsupported template_engine %q", services.ErrValidation, layer.TemplateEngine)
	}
	return substitute(template, vars)
}

func substitute(template string, vars map[string]string) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

	for i := 0; i < len(template); {
		ch := template[i]
		switch ch {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				out.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(template[i:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w: unterminated placeholder in template %q", services.ErrValidation, template)
			}
			name := template[i+1 : i+end]
			value, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("%w: template references undefined variable %q", services.ErrValidation, name)
			}
			out.WriteString(value)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				out.WriteByte('}')
				i += 2
				continue
			}
			return "", fmt.Errorf("%w: stray '}' in template %q", services.ErrValidation, template)
		default:
			out.WriteByte(ch)
			i++
		}
	}
	return out.String(), nil
}
