package domain

import (
	"fmt"
	"strings"
)

// PromptPolicy lists provider kinds whose profiles must carry at least one system prompt.
type PromptPolicy map[ProviderKind]bool

func (pp PromptPolicy) Validate(p *Profile) error {
	if !pp[p.Provider] {
		return nil
	}
	for _, s := range p.SystemPrompts {
		if strings.TrimSpace(s) != "" {
			return nil
		}
	}
	return ValidationError(fmt.Sprintf("Profiles of provider %s require at least one system prompt", p.Provider))
}
