package tools

import "github.com/loreseek/loreseek/tool"

// All returns the full tool set in advertisement order.
func All() []tool.Definition {
	return []tool.Definition{
		SearchCode(),
		SearchClientCode(),
		SearchGamedata(),
		SearchDocs(),
		CodeStats(),
		ClientCodeStats(),
		GamedataStats(),
		DocsStats(),
	}
}

// RegisterAll registers every tool into reg. Fails on the first
// registration error.
func RegisterAll(reg *tool.Registry) error {
	for _, def := range All() {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}
