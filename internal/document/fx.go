package document

import "go.uber.org/fx"

var Module = fx.Module("document.exporter",
	fx.Provide(NewExporter),
)
