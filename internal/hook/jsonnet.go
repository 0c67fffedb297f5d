package hook

import "jsonnetdoc/internal/filter"

// JsonnetPlugin hides everything but documentation comments from the parser.
type JsonnetPlugin struct{}

func (JsonnetPlugin) Name() string { return "jsonnet" }

func (p JsonnetPlugin) Register(r *Registry) {
	r.On(BeforeParse, p.BeforeParse)
}

// BeforeParse returns e with its source reduced to documentation comments and newlines.
func (JsonnetPlugin) BeforeParse(e Event) Event {
	return Event{
		Filename: e.Filename,
		Source:   filter.Transform(e.Filename, e.Source),
	}
}
