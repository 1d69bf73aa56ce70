package config

import "fmt"

// Prompt overrides a named template of the prompt library.
type Prompt struct {
	Name     string `hcl:"name,label"`
	Template string `hcl:"template"`
}

func (p *Prompt) Validate() error {
	if p.Template == "" {
		return fmt.Errorf("template must not be empty")
	}
	return nil
}
