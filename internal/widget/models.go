package widget

import "github.com/yanizio/widgetkit/internal/property"

// Type names shared by the built-in definitions.
const (
	TypeWidget       = "Widget"
	TypeCallback     = "Callback"
	TypeCustomJS     = "CustomJS"
	TypeAbstractIcon = "AbstractIcon"
)

// Sizing policies accepted by width_policy and height_policy.
var SizingPolicy = property.Enum("auto", "fixed", "fit", "min", "max")

func init() {
	Register(Definition{
		Name:     TypeWidget,
		Abstract: true,
		Properties: []property.Descriptor{
			property.MustDeclare("disabled", property.Bool, false).
				WithHelp("Whether the widget will be disabled when rendered."),
			property.MustDeclare("visible", property.Bool, true),
			property.MustDeclare("width", property.Nullable(property.Int), nil),
			property.MustDeclare("height", property.Nullable(property.Int), nil),
			property.MustDeclare("width_policy", SizingPolicy, "auto"),
			property.MustDeclare("height_policy", SizingPolicy, "auto"),
			property.MustDeclare("css_classes", property.List(property.String), []string{}),
		},
	})

	// Callback values hold browser-side code that travels with the model.
	Register(Definition{Name: TypeCallback, Abstract: true})
	Register(Definition{
		Name:   TypeCustomJS,
		Parent: TypeCallback,
		Properties: []property.Descriptor{
			property.MustDeclare("code", property.String, "").
				WithHelp("Browser-side snippet run when the callback fires."),
		},
	})

	Register(Definition{Name: TypeAbstractIcon, Abstract: true})
}
